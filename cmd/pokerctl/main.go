package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/decred/slog"
	"github.com/spf13/cobra"
	"github.com/vctt94/bisonbotkit/logging"
	"github.com/vctt94/holdemtable/pkg/bot"
	"github.com/vctt94/holdemtable/pkg/client"
	"github.com/vctt94/holdemtable/pkg/poker"
	"github.com/vctt94/holdemtable/pkg/ui"
	"github.com/vctt94/holdemtable/pkg/utils"
)

type globalOpts struct {
	server  string
	timeout time.Duration
	debug   string
	jsonOut bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}
	root := &cobra.Command{
		Use:          "pokerctl",
		Short:        "Command line client for the Hold'em table server",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.server, "server", "127.0.0.1:3000", "Server address")
	pf.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Timeout for one-shot commands")
	pf.StringVar(&opts.debug, "debug", "off", "Debug level for client logging")
	pf.BoolVar(&opts.jsonOut, "json", false, "Print raw JSON")

	root.AddCommand(
		healthCmd(opts),
		stateCmd(opts),
		recordsCmd(opts),
		streamCmd(opts),
		playCmd(opts),
		autoplayCmd(opts),
		adminCmd(opts),
		sayCmd(opts),
	)
	return root
}

// logger returns the client logger. Output goes to stdout, so the default
// level "off" keeps command output clean.
func (o *globalOpts) logger() (slog.Logger, error) {
	if o.debug == "" || o.debug == "off" {
		return slog.Disabled, nil
	}
	lb, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: o.debug})
	if err != nil {
		return nil, err
	}
	return lb.Logger("CLNT"), nil
}

func (o *globalOpts) dial(ctx context.Context) (*client.PokerClient, error) {
	log, err := o.logger()
	if err != nil {
		return nil, err
	}
	return client.Dial(ctx, o.server, log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func healthCmd(opts *globalOpts) *cobra.Command {
	var grpcAddr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the HTTP (and optionally gRPC) health endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			status, err := client.CheckHealth(ctx, opts.server)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "http: %s\n", status)
			if grpcAddr != "" {
				status, err := client.CheckGRPCHealth(ctx, grpcAddr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "grpc: %s\n", status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "Address of the gRPC health service")
	return cmd
}

func stateCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the public table state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			s, err := client.FetchState(ctx, opts.server)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), s)
			}
			printState(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printState(w io.Writer, s *poker.TableSnapshot) {
	fmt.Fprintln(w, ui.TitleStyle.Render(fmt.Sprintf("Hand #%d (%s)", s.HandNumber, s.Phase)))
	fmt.Fprintf(w, "Board: %s  Pot: %d  Current bet: %d  Blinds: %d/%d (level %d)\n",
		utils.FormatCards(s.Community), s.Pot, s.CurrentBet, s.SmallBlind, s.BigBlind, s.BlindLevel)
	for _, p := range s.Players {
		marker := " "
		if p.Seat == s.CurrentPlayer {
			marker = ">"
		}
		line := fmt.Sprintf("%s %2d %-16s %8d  %-9s %s", marker, p.Seat, p.Name, p.Chips, p.Status,
			utils.FormatCards(p.HoleCards))
		if p.Folded {
			line = ui.FoldedPlayerStyle.UnsetBorderStyle().UnsetPadding().UnsetMargins().Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

func recordsCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "Print highest pot, biggest win and wins per player",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			r, err := client.FetchRecords(ctx, opts.server)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), r)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRecords(r))
			return nil
		},
	}
}

func renderRecords(r *client.Records) string {
	names := make([]string, 0, len(r.WinsByName))
	for name := range r.WinsByName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := r.WinsByName[names[i]], r.WinsByName[names[j]]
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})

	rows := []string{
		ui.TitleStyle.Render("Records"),
		fmt.Sprintf("Highest pot: %d", r.HighestPot),
		fmt.Sprintf("Biggest win: %d", r.BiggestWin),
	}
	for _, name := range names {
		rows = append(rows, fmt.Sprintf("  %-16s %d", name, r.WinsByName[name]))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

func streamCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "stream",
		Short: "Stream table updates as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pc, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer pc.Close()
			for {
				msg, err := pc.Await(ctx, "state")
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), msg.State); err != nil {
					return err
				}
			}
		},
	}
}

func sayCmd(opts *globalOpts) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "say TEXT...",
		Short: "Send a chat line to everyone at the table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			pc, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer pc.Close()

			text := strings.Join(args, " ")
			if err := pc.Send(client.Request{Type: "chat", Name: name, Text: text}); err != nil {
				return err
			}
			msg, err := pc.Await(ctx, "chat", "actionRejected")
			if err != nil {
				return err
			}
			if msg.Type == "actionRejected" {
				return errors.New(msg.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", msg.Name, msg.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name to chat under")
	return cmd
}

type seatOpts struct {
	name string
	seat int
}

func (s *seatOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.name, "name", "", "Display name")
	cmd.Flags().IntVar(&s.seat, "seat", 0, "Seat number, 0 for any free seat")
	cmd.MarkFlagRequired("name")
}

func (s *seatOpts) join(ctx context.Context, pc *client.PokerClient) (client.Message, error) {
	req := client.Request{Type: "joinSeat", Name: s.name, Seat: s.seat}
	if s.seat == 0 {
		req.Type = "join"
	}
	if err := pc.Send(req); err != nil {
		return client.Message{}, err
	}
	msg, err := pc.Await(ctx, "joined", "actionRejected")
	if err != nil {
		return client.Message{}, err
	}
	if msg.Type == "actionRejected" {
		return client.Message{}, fmt.Errorf("join rejected: %s", msg.Error)
	}
	return msg, nil
}

func playCmd(opts *globalOpts) *cobra.Command {
	seat := &seatOpts{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Sit at the table and play in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// The TUI owns the terminal, so nothing is logged.
			pc, err := client.Dial(ctx, opts.server, slog.Disabled)
			if err != nil {
				return err
			}
			defer pc.Close()

			joined, err := seat.join(ctx, pc)
			if err != nil {
				return err
			}
			m := ui.NewModel(pc, pc.Updates)
			m.HandleMessage(joined)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	seat.register(cmd)
	return cmd
}

func autoplayCmd(opts *globalOpts) *cobra.Command {
	seat := &seatOpts{}
	var hands int
	var shove bool
	cmd := &cobra.Command{
		Use:   "autoplay",
		Short: "Sit down and play automatically until the given number of hands finish",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log, err := opts.logger()
			if err != nil {
				return err
			}
			pc, err := client.Dial(ctx, opts.server, log)
			if err != nil {
				return err
			}
			defer pc.Close()
			strategy := bot.Passive
			if shove {
				strategy = bot.Shove
			}
			return newAutoplayer(pc, seat, hands, strategy, log, cmd.OutOrStdout()).Run(ctx)
		},
	}
	seat.register(cmd)
	cmd.Flags().IntVar(&hands, "hands", 1, "Number of hands to play")
	cmd.Flags().BoolVar(&shove, "shove", false, "Go all in on every turn instead of checking or calling")
	return cmd
}

func newAutoplayer(conn bot.Conn, seat *seatOpts, hands int, strategy bot.Strategy, log slog.Logger, w io.Writer) *bot.Bot {
	return bot.New(bot.Config{
		Log:        log,
		Name:       seat.name,
		Seat:       seat.seat,
		Strategy:   strategy,
		Hands:      hands,
		StartHands: true,
		OnShowdown: func(hand int, res *poker.ShowdownResult) {
			for _, pot := range res.Pots {
				for _, win := range pot.Winners {
					fmt.Fprintf(w, "hand %d: %s wins %d\n", hand, win.Name, win.Amount)
				}
			}
		},
	}, conn)
}

func adminCmd(opts *globalOpts) *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Privileged table commands",
	}
	cmd.PersistentFlags().StringVar(&secret, "secret", os.Getenv("POKER_ADMINSECRET"), "Admin secret")

	run := func(build func(args []string) (client.Request, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			req, err := build(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			pc, err := opts.dial(ctx)
			if err != nil {
				return err
			}
			defer pc.Close()
			if err := pc.Authenticate(ctx, secret); err != nil {
				return err
			}
			return adminRequest(ctx, pc, req, cmd.OutOrStdout())
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "setblind LEVEL",
			Short: "Set the blind level",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(args []string) (client.Request, error) {
				level, err := strconv.Atoi(args[0])
				return client.Request{Type: "setBlindLevel", Level: level}, err
			}),
		},
		&cobra.Command{
			Use:   "autoblinds on|off",
			Short: "Toggle the automatic blind increase",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(args []string) (client.Request, error) {
				switch args[0] {
				case "on":
					return client.Request{Type: "toggleAutoIncreaseBlinds", Enabled: true}, nil
				case "off":
					return client.Request{Type: "toggleAutoIncreaseBlinds", Enabled: false}, nil
				}
				return client.Request{}, fmt.Errorf("expected on or off, got %q", args[0])
			}),
		},
		&cobra.Command{
			Use:   "kick SEAT",
			Short: "Remove the player in a seat",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(args []string) (client.Request, error) {
				seat, err := strconv.Atoi(args[0])
				return client.Request{Type: "kick", Seat: seat}, err
			}),
		},
		&cobra.Command{
			Use:   "resetrecords",
			Short: "Erase the win and pot history",
			Args:  cobra.NoArgs,
			RunE: run(func([]string) (client.Request, error) {
				return client.Request{Type: "resetRecords"}, nil
			}),
		},
	)
	return cmd
}

// adminRequest sends req and waits for the state it produces or the
// rejection.
func adminRequest(ctx context.Context, pc *client.PokerClient, req client.Request, w io.Writer) error {
	if err := pc.Send(req); err != nil {
		return err
	}
	// Blind and kick commands answer with a state broadcast, a reset with
	// the emptied records.
	reply := "state"
	if req.Type == "resetRecords" {
		reply = "records"
	}
	msg, err := pc.Await(ctx, "adminError", reply)
	if err != nil {
		return err
	}
	if msg.Type == "adminError" {
		return fmt.Errorf("%s rejected: %s", msg.Action, msg.Error)
	}
	fmt.Fprintf(w, "%s ok\n", req.Type)
	return nil
}
