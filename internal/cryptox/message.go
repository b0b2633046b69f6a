package cryptox

// The signed messages are plain byte concatenations of UTF-8 strings.
// Client and server must build them identically.

const loginTag = "auth"

// RegistrationMessage is challenge ++ relyingPartyID.
func RegistrationMessage(challenge, relyingPartyID string) []byte {
	return []byte(challenge + relyingPartyID)
}

// LoginMessage is challenge ++ "auth" ++ relyingPartyID.
func LoginMessage(challenge, relyingPartyID string) []byte {
	return []byte(challenge + loginTag + relyingPartyID)
}

// LinkMessage is linkChallenge ++ token, binding the signature to one link.
func LinkMessage(challenge, token string) []byte {
	return []byte(challenge + token)
}
