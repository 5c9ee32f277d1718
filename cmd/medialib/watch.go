package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"

	"medialib/internal/events"
	libsync "medialib/internal/sync"
)

const reconnectDelay = time.Second

func watchCmd() *cobra.Command {
	var addr, natsURL string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live library changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if natsURL == "" {
				natsURL = a.cfg.NATSURL
			}
			if natsURL != "" {
				me, err := a.api.Me(ctx)
				if err != nil {
					return err
				}
				return watchNATS(ctx, natsURL, me.ID, out)
			}

			if addr == "" {
				addr = a.cfg.SyncAddr
			}
			token := a.api.Session().Token()
			for {
				err := watchTCP(ctx, addr, token, out)
				if ctx.Err() != nil {
					return nil
				}
				var authErr *syncAuthError
				if errors.As(err, &authErr) {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "disconnected: %v\n", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(reconnectDelay):
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "TCP sync address (default from config)")
	cmd.Flags().StringVar(&natsURL, "nats", "", "read events from NATS instead of the TCP sync server")
	return cmd
}

type syncAuthError struct{ msg string }

func (e *syncAuthError) Error() string { return "sync auth: " + e.msg }

// watchTCP runs one sync session: it authenticates with token and prints
// events until the connection drops or ctx ends.
func watchTCP(ctx context.Context, addr, token string, out io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	auth, _ := json.Marshal(libsync.Message{Type: libsync.MsgAuth, Token: token})
	if _, err := conn.Write(append(auth, '\n')); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	sc := bufio.NewScanner(conn)
	authed := false
	for sc.Scan() {
		line := sc.Bytes()
		if !authed {
			var m libsync.Message
			if err := json.Unmarshal(line, &m); err != nil {
				continue
			}
			switch m.Type {
			case libsync.MsgAuthOK:
				authed = true
				fmt.Fprintf(out, "%s watching as %s\n", okStyle.Render("✓"), m.UserID)
			case libsync.MsgError:
				return &syncAuthError{msg: m.Message}
			}
			continue
		}
		printEvent(out, line)
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return io.EOF
}

// watchNATS prints the library events on the bus that belong to userID.
func watchNATS(ctx context.Context, url, userID string, out io.Writer) error {
	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		return err
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicLibraryAll)
	if err != nil {
		return err
	}
	defer cancel()
	fmt.Fprintf(out, "%s watching %s\n", okStyle.Render("✓"), url)

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			var ev events.LibraryEvent
			if json.Unmarshal(data, &ev) != nil || ev.UserID != userID {
				continue
			}
			printEvent(out, data)
		}
	}
}

func printEvent(out io.Writer, line []byte) {
	var ev events.LibraryEvent
	if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
		fmt.Fprintln(out, string(line))
		return
	}
	at := dimStyle.Render(ev.At.Local().Format("15:04:05"))
	if ev.Type == events.TypeLibraryDelete {
		fmt.Fprintf(out, "%s removed %d %s\n", at, ev.MediaID, ev.Title)
		return
	}
	fmt.Fprintf(out, "%s %d %s %s progress %d score %s\n",
		at, ev.MediaID, ev.Title, ev.Status, ev.Progress, optInt(ev.Score))
}
