package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText, getPassphrase and confirm are swapped out in tests.
var (
	getSimpleText = GetSimpleText
	getPassphrase = GetPassphrase
	confirm       = Confirm
)

// linkPollInterval is how often Link asks the server for the new device.
var linkPollInterval = 2 * time.Second

var errNotLoggedIn = errors.New("log in first")

// describe turns service errors into short user-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.Is(err, client.ErrLocalDataNotAvailable):
		return "this device has no key for that user; register or join first"
	case errors.Is(err, common.ErrorUnauthorized):
		return "not authorized (wrong passphrase or expired session)"
	case errors.Is(err, common.ErrForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrGone):
		return "link expired or invalid"
	case errors.Is(err, common.ErrConflict):
		return "already exists"
	case errors.Is(err, common.ErrorNotFound):
		return "not found"
	default:
		return err.Error()
	}
}

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	return nil
}

func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	passphrase, err := getPassphrase(a.out)
	if err != nil {
		return err
	}
	defer common.Wipe(passphrase)

	if err := a.authService.Register(ctx, userName, passphrase, a.config.DeviceName); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered. Use 'login' to start a session.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	passphrase, err := getPassphrase(a.out)
	if err != nil {
		return err
	}
	defer common.Wipe(passphrase)

	if err := a.authService.Login(ctx, userName, passphrase); err != nil {
		return err
	}

	a.setUser(userName)
	fmt.Fprintln(a.out, "Logged in as", userName)
	return nil
}

// Logout always forgets the local session, even if the server call fails.
func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	a.setUser("")
	return err
}

func (a *App) Me(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	me, err := a.authService.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (id %s, since %s)\n", me.Username, me.ID, me.CreatedAt.Format(time.RFC3339))
	return nil
}

func (a *App) Devices(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	devices, err := a.authService.Devices(ctx)
	if err != nil {
		return err
	}
	for _, d := range devices {
		marker := " "
		if d.Current {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %s  %-8s  %s  %s\n", marker, d.ID, d.Status, d.CreatedAt.Format(time.DateOnly), d.Name)
	}
	return nil
}

func (a *App) Revoke(ctx context.Context, deviceID string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if !confirm(a.reader, "Revoke device "+deviceID+"?", a.out) {
		return nil
	}
	if err := a.authService.RevokeDevice(ctx, deviceID); err != nil {
		return err
	}
	if a.authService.CurrentUser(ctx) == "" {
		a.setUser("")
		fmt.Fprintln(a.out, "This device was revoked; session ended.")
		return nil
	}
	fmt.Fprintln(a.out, "Device revoked.")
	return nil
}

// Link creates an invitation, waits for the new device to join and asks
// the owner to approve it.
func (a *App) Link(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	invite, err := a.authService.StartLink(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Open this link on the new device, or run 'join' there with it:")
	fmt.Fprintln(a.out, invite.URL)
	fmt.Fprintf(a.out, "Waiting until %s ...\n", invite.ExpiresAt.Local().Format(time.TimeOnly))

	ticker := time.NewTicker(linkPollInterval)
	defer ticker.Stop()

	for {
		st, err := a.authService.LinkStatus(ctx, invite.LinkID)
		if err != nil {
			return err
		}
		if st.Status == client.LinkNeedsApproval && st.Device != nil {
			if !confirm(a.reader, fmt.Sprintf("Approve device %q (%s)?", st.Device.Name, st.Device.ID), a.out) {
				fmt.Fprintln(a.out, "Not approved; the device stays pending.")
				return nil
			}
			if err := a.authService.Approve(ctx, st.Device.ID, invite.LinkID); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Device approved.")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *App) Join(ctx context.Context, tokenOrURL string) error {
	passphrase, err := getPassphrase(a.out)
	if err != nil {
		return err
	}
	defer common.Wipe(passphrase)

	id, err := a.authService.Join(ctx, tokenOrURL, passphrase, a.config.DeviceName)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Joined %s as device %s. Approve it from a logged-in device, then 'login'.\n", id.Username, id.DeviceID)
	return nil
}

func (a *App) DeleteAccount(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if !confirm(a.reader, "Delete the account and all its devices?", a.out) {
		return nil
	}
	if err := a.authService.DeleteAccount(ctx); err != nil {
		return err
	}
	a.setUser("")
	fmt.Fprintln(a.out, "Account deleted.")
	return nil
}
