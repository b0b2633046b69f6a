package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Devices(ctx context.Context) error
	Revoke(ctx context.Context, deviceID string) error
	Link(ctx context.Context) error
	Join(ctx context.Context, tokenOrURL string) error
	DeleteAccount(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, join <token|url>, exit"
	helpLoggedIn  = "Available commands: me, devices, revoke <id>, link, join <token|url>, delete-account, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to
// a. It returns on EOF, on "exit"/"quit" or when ctx is done. Command
// errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("gophauth %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "me":
			cmdErr = a.Me(ctx)

		case "devices":
			cmdErr = a.Devices(ctx)

		case "revoke":
			if len(args) != 1 {
				printlnFn("Usage: revoke <device id>")
				continue
			}
			cmdErr = a.Revoke(ctx, args[0])

		case "link":
			cmdErr = a.Link(ctx)

		case "join":
			if len(args) != 1 {
				printlnFn("Usage: join <token|url>")
				continue
			}
			cmdErr = a.Join(ctx, args[0])

		case "delete-account":
			cmdErr = a.DeleteAccount(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describe(cmdErr))
		}

		if errors.Is(err, io.EOF) {
			return
		}
	}
}
