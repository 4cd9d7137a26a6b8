package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/collabhub/realtime/internal/client"
	"github.com/collabhub/realtime/internal/client/board"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/collabhub/realtime/internal/logging"
)

func main() {
	fs := pflag.NewFlagSet("collab-client", pflag.ExitOnError)
	url := fs.String("url", "ws://localhost:5000/ws", "gateway websocket URL")
	user := fs.String("user", "", "user id sent in the handshake")
	projects := fs.StringSlice("project", nil, "project ids to join (repeatable)")
	workspaces := fs.StringSlice("workspace", nil, "workspace ids to join (repeatable)")
	say := fs.String("say", "", "send this chat message to the first project once connected")
	retries := fs.Uint64("retries", 5, "redial attempts per connect cycle")
	level := fs.String("log-level", "info", "trace, debug, info, warn or error")
	_ = fs.Parse(os.Args[1:])

	logging.Setup(*level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s := client.New(&client.WSDialer{URL: *url}, client.Options{
		UserID:     domain.UserID(*user),
		MaxRetries: *retries,
	})
	defer s.Disconnect()

	var boards []*board.Board
	for _, id := range *projects {
		if err := s.JoinProject(id); err != nil {
			log.Error().Err(err).Str("project", id).Msg("bad project id")
			os.Exit(2)
		}
		b := board.New(id)
		b.Attach(s)
		boards = append(boards, b)
	}
	for _, id := range *workspaces {
		if err := s.JoinWorkspace(id); err != nil {
			log.Error().Err(err).Str("workspace", id).Msg("bad workspace id")
			os.Exit(2)
		}
	}
	if *say != "" && len(*projects) > 0 {
		// queued until the first connect
		_ = s.SendMessage(domain.Message{
			ID:        fmt.Sprintf("cli-%d", time.Now().UnixNano()),
			Content:   *say,
			Sender:    &domain.UserRef{ID: domain.UserID(*user)},
			Project:   domain.ProjectRef{ID: (*projects)[0]},
			CreatedAt: time.Now(),
		})
	}

	printer := client.HandlerFunc(func(ev domain.Event) { printEvent(ev, boards) })
	for _, name := range []domain.EventName{
		domain.EventTaskCreated,
		domain.EventTaskUpdated,
		domain.EventTaskDeleted,
		domain.EventReceiveMessage,
		domain.EventNewNotification,
	} {
		_ = s.On(name, printer)
	}

	gaveUp := make(chan struct{}, 1)
	s.OnStateChange(func(st client.State) {
		log.Info().Str("module", "client").Str("state", st.String()).Msg("state")
		if st == client.StateDisconnected && s.Err() != nil {
			select {
			case gaveUp <- struct{}{}:
			default:
			}
		}
	})

	if err := s.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("connect")
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-gaveUp:
		log.Error().Err(s.Err()).Msg("gateway unreachable")
		os.Exit(1)
	}
}

// printEvent runs after the boards have merged the event, since they were
// attached first.
func printEvent(ev domain.Event, boards []*board.Board) {
	switch e := ev.(type) {
	case domain.TaskCreated:
		fmt.Printf("task created  %s %q in project %s\n", e.Task.ID, e.Task.Name, e.Task.Project)
	case domain.TaskUpdated:
		fmt.Printf("task updated  %s %q status=%s\n", e.Task.ID, e.Task.Name, e.Task.Status)
	case domain.TaskDeleted:
		fmt.Printf("task deleted  %s\n", e.TaskID)
	case domain.MessageReceived:
		from := "?"
		if e.Message.Sender != nil {
			from = e.Message.Sender.Name
			if from == "" {
				from = string(e.Message.Sender.ID)
			}
		}
		fmt.Printf("message       [%s] %s: %s\n", e.Message.Project.ID, from, e.Message.Content)
	case domain.NotificationCreated:
		fmt.Printf("notification  %s: %s\n", e.Notification.Type, e.Notification.Message)
	}
	for _, b := range boards {
		log.Debug().Str("module", "client").Int("tasks", b.Len()).Msg("board")
	}
}
