// ABOUTME: Terminal output and the interactive command loop
// ABOUTME: Prints history and notices, and maps /commands onto the router and friend list

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/chatapi"
	"github.com/2389/coven-chat/internal/friends"
	"github.com/2389/coven-chat/internal/inbox"
	"github.com/2389/coven-chat/internal/router"
	"github.com/2389/coven-chat/internal/stream"
)

// console serializes writes to the terminal.
type console struct {
	mu   sync.Mutex
	out  io.Writer
	self string
}

func newConsole(out io.Writer, self string) *console {
	return &console{out: out, self: self}
}

// ShowHistory prints messages of a conversation. A full load clears the
// screen section with a header first.
func (c *console) ShowHistory(id inbox.ID, msgs []chatapi.Message, resumed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !resumed {
		other, _ := inbox.Other(id, c.self)
		fmt.Fprintln(c.out, color.HiBlackString("── conversation with %s ──", other))
		if len(msgs) == 0 {
			fmt.Fprintln(c.out, color.HiBlackString("   (no messages yet)"))
		}
	}
	for _, m := range msgs {
		who := color.CyanString(m.FromUser)
		if m.FromUser == c.self {
			who = color.GreenString("you")
		}
		fmt.Fprintf(c.out, "%s %s: %s\n", color.HiBlackString(m.Time().Format("15:04")), who, m.Text)
	}
}

func (c *console) notice(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, color.YellowString("• "+format, args...))
}

func (c *console) errorf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, color.RedString("[error] "+format, args...))
}

func (c *console) println(args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, args...)
}

func (c *console) showFriends(list []friends.Friend) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(list) == 0 {
		fmt.Fprintln(c.out, "No friends yet.")
		return
	}
	for _, f := range list {
		mark := " "
		if f.HasUnread {
			mark = color.YellowString("*")
		}
		name := f.Username
		if f.IsSelected {
			name = color.New(color.Bold).Sprint(name)
		}
		fmt.Fprintf(c.out, "  %s %-16s %s\n", mark, f.ID, name)
	}
}

// chatRouter is the part of the router the command loop drives.
type chatRouter interface {
	StartChat(ctx context.Context, friendID string) (inbox.ID, error)
	Send(ctx context.Context, text string) error
	Current() inbox.ID
}

type stateReporter interface {
	State() stream.State
}

type commands struct {
	router  chatRouter
	friends *friends.List
	conn    stateReporter
	out     *console
	refresh func(ctx context.Context) error
}

// loop reads lines from in until EOF, /quit, or ctx ends.
func (c *commands) loop(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- err
			return
		}
		errc <- io.EOF
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case line := <-lines:
			if c.execute(ctx, line) {
				return nil
			}
		}
	}
}

// execute runs one input line and reports whether the user asked to quit.
func (c *commands) execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.send(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		c.printHelp()
	case "/friends":
		if c.refresh != nil {
			if err := c.refresh(ctx); err != nil {
				c.out.errorf("refreshing friends: %v", err)
			}
		}
		c.out.showFriends(c.friends.Snapshot())
	case "/chat":
		if arg == "" {
			c.out.errorf("usage: /chat <friend id>")
			return false
		}
		if _, ok := c.friends.Get(arg); !ok {
			c.out.errorf("unknown friend %q (see /friends)", arg)
			return false
		}
		if _, err := c.router.StartChat(ctx, arg); err != nil {
			c.out.errorf("%v", err)
		}
	case "/status":
		current := c.router.Current()
		if current == "" {
			current = "none"
		}
		c.out.println(fmt.Sprintf("stream: %s, conversation: %s", c.conn.State(), current))
	default:
		c.out.errorf("unknown command %s (try /help)", cmd)
	}
	return false
}

func (c *commands) send(ctx context.Context, text string) {
	err := c.router.Send(ctx, text)
	switch {
	case errors.Is(err, router.ErrNoConversation):
		c.out.errorf("no open conversation, use /chat <friend id> first")
	case err != nil:
		c.out.errorf("sending: %v", err)
	}
}

func (c *commands) printHelp() {
	c.out.println("Commands:")
	c.out.println("  /friends       List friends (* marks unread)")
	c.out.println("  /chat <id>     Open the conversation with a friend")
	c.out.println("  /status        Show stream state and open conversation")
	c.out.println("  /help          Show this help")
	c.out.println("  /quit          Exit")
	c.out.println("Anything else is sent to the open conversation.")
}
