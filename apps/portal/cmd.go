package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// apiClient is the part of the API the portal talks to.
type apiClient interface {
	meeting.Gateway
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context) (user.User, error)
	Slots(ctx context.Context, studentID, projectID string) ([]meeting.Meeting, error)
}

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	client apiClient
	recent *meeting.RecentStore
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME|EMAIL - print an API token; the password is prompted next")
	fmt.Fprintln(cli.out, "  list [-project ID] [-force] - list your meetings")
	fmt.Fprintln(cli.out, "  slots -project ID [-student ID] - show the four meeting slots of a project")
	fmt.Fprintln(cli.out, "  schedule -student ID -project ID -number N -date RFC3339 [-title T] [-type TYPE] [-duration MIN] [-summary S]")
	fmt.Fprintln(cli.out, "  status -id ID -to STATUS [-summary S] [-points P] [-remarks R] [-date RFC3339] - change a meeting's status")
	fmt.Fprintln(cli.out, "  watch [-slots] - print meeting events until interrupted, with the student's slots")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "login":
		return cli.login(ctx, args[2:])
	case "list":
		return cli.list(ctx, args[2:])
	case "slots":
		return cli.slots(ctx, args[2:])
	case "schedule":
		return cli.schedule(ctx, args[2:])
	case "status":
		return cli.status(ctx, args[2:])
	case "watch":
		return cli.watch(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("login")
	uname := fs.String("username", "", "The username or email.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uname == "" {
		fs.Usage()
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}

	token, err := cli.client.Login(ctx, *uname, string(pwd))
	if err != nil {
		return pkgerrors.Wrap(err, "logging in")
	}
	fmt.Fprintln(cli.out, token)
	fmt.Fprintf(cli.out, "export %s_CLIENT_TOKEN to use it\n", cli.conf.Env)
	return nil
}

// newBoard builds the board of the signed-in user on a fresh broker.
func (cli *commandLine) newBoard(ctx context.Context) (*meeting.Board, *meeting.Broker, error) {
	me, err := cli.client.Me(ctx)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "fetching profile")
	}
	broker := meeting.NewBroker()
	board, err := meeting.NewBoard(meeting.BoardConfig{
		Viewer:   meeting.Viewer{ID: me.ID, Role: me.Role},
		Gateway:  cli.client,
		Broker:   broker,
		Recent:   cli.recent,
		CacheTTL: cli.conf.Meetings.CacheTTL,
		Buffer:   cli.conf.Meetings.SubscriberBuffer,
		Logger:   cli.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return board, broker, nil
}

func (cli *commandLine) list(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("list")
	projectID := fs.String("project", "", "Only show the meetings of this project.")
	force := fs.Bool("force", false, "Bypass the cache.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	board, _, err := cli.newBoard(ctx)
	if err != nil {
		return err
	}
	defer board.Close()

	source := board.Refresh(ctx, *force)
	if source == "" {
		fmt.Fprintln(cli.out, "no meetings available: the server cannot be reached and nothing is cached")
		return nil
	}

	var meetings []meeting.Meeting
	for _, m := range board.Meetings() {
		if *projectID == "" || m.ProjectID == *projectID {
			meetings = append(meetings, m)
		}
	}
	cli.printMeetings(meetings)
	fmt.Fprintf(cli.out, "(%d meetings from %s)\n", len(meetings), source)
	return nil
}

// slots prints the slots computed by the server, or by the board when the server is unreachable.
func (cli *commandLine) slots(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("slots")
	projectID := fs.String("project", "", "The project.")
	studentID := fs.String("student", "", "The student; defaults to you.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *projectID == "" {
		fs.Usage()
		return errHelp
	}

	me, err := cli.client.Me(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "fetching profile")
	}
	if *studentID == "" {
		if !me.IsStudent() {
			fs.Usage()
			return errHelp
		}
		*studentID = me.ID
	}

	slots, err := cli.client.Slots(ctx, *studentID, *projectID)
	if err == nil {
		cli.printMeetings(slots)
		return nil
	}
	if core.FailureKindOf(err) != core.NetworkFailure {
		return pkgerrors.Wrap(err, "fetching slots")
	}

	cli.logger.Warn(fmt.Sprintf("server unreachable, computing slots locally: %v", err))
	board, _, bErr := cli.newBoard(ctx)
	if bErr != nil {
		return pkgerrors.Wrap(err, "fetching slots")
	}
	defer board.Close()
	board.Refresh(ctx, false)

	slots, conflicts := board.Slots(*projectID)
	cli.printMeetings(slots)
	for _, c := range conflicts {
		fmt.Fprintf(cli.out, "conflict: %s\n", c)
	}
	return nil
}

func (cli *commandLine) schedule(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("schedule")
	studentID := fs.String("student", "", "The student.")
	projectID := fs.String("project", "", "The student's project.")
	number := fs.Int("number", 0, "The meeting number, 1 to 4.")
	date := fs.String("date", "", "The date, RFC3339.")
	title := fs.String("title", "", "The title; defaults to \"Meeting N\".")
	mType := fs.String("type", string(meeting.TypeProgressReview), "The meeting type.")
	duration := fs.Int("duration", meeting.DefaultDuration, "The duration in minutes.")
	summary := fs.String("summary", "", "The agenda.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *studentID == "" || *projectID == "" || *number == 0 || *date == "" {
		fs.Usage()
		return errHelp
	}
	when, err := time.Parse(time.RFC3339, *date)
	if err != nil {
		return pkgerrors.Wrap(err, "parsing date")
	}
	if *title == "" {
		*title = fmt.Sprintf("Meeting %d", *number)
	}

	board, _, err := cli.newBoard(ctx)
	if err != nil {
		return err
	}
	defer board.Close()

	m, err := board.Schedule(ctx, meeting.NewMeeting{
		Title:          *title,
		StudentID:      *studentID,
		ProjectID:      *projectID,
		MeetingNumber:  *number,
		ScheduledDate:  when,
		MeetingSummary: *summary,
		MeetingType:    meeting.Type(*mType),
		Duration:       *duration,
	})
	if err != nil {
		return err
	}
	cli.printMeetings([]meeting.Meeting{m})
	return nil
}

// status changes a meeting's status. Content flags left out keep their value; passing an empty
// value clears it.
func (cli *commandLine) status(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("status")
	id := fs.String("id", "", "The meeting.")
	to := fs.String("to", "", "The new status.")
	summary := fs.String("summary", "", "The meeting summary.")
	points := fs.String("points", "", "The student's points.")
	remarks := fs.String("remarks", "", "The guide's remarks.")
	date := fs.String("date", "", "The new date, RFC3339; required to reschedule.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *to == "" {
		fs.Usage()
		return errHelp
	}

	passed := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { passed[f.Name] = true })
	text := func(name, value string) meeting.Text {
		switch {
		case !passed[name]:
			return meeting.Keep()
		case value == "":
			return meeting.Clear()
		default:
			return meeting.Set(value)
		}
	}
	content := meeting.ContentUpdate{
		MeetingSummary: text("summary", *summary),
		StudentPoints:  text("points", *points),
		GuideRemarks:   text("remarks", *remarks),
	}

	var newDate *time.Time
	if *date != "" {
		d, err := time.Parse(time.RFC3339, *date)
		if err != nil {
			return pkgerrors.Wrap(err, "parsing date")
		}
		newDate = &d
	}

	board, _, err := cli.newBoard(ctx)
	if err != nil {
		return err
	}
	defer board.Close()
	board.Refresh(ctx, true)

	if current, ok := findMeeting(board.Meetings(), *id); ok {
		if !board.CanManage(current) {
			return pkgerrors.Wrap(core.ErrForbidden, "only the meeting's guide can change its status")
		}
		if !meeting.CanTransition(current.Status, meeting.Status(*to)) {
			cli.printTargets(current)
		}
	}

	m, err := board.UpdateStatus(ctx, *id, meeting.Status(*to), content, newDate)
	if err != nil {
		return err
	}
	cli.printMeetings([]meeting.Meeting{m})
	return nil
}

func findMeeting(meetings []meeting.Meeting, id string) (meeting.Meeting, bool) {
	for _, m := range meetings {
		if m.ID == id {
			return m, true
		}
	}
	return meeting.Meeting{}, false
}

func (cli *commandLine) printTargets(m meeting.Meeting) {
	if m.Status.IsTerminal() {
		fmt.Fprintf(cli.out, "meeting %s is %s and cannot change anymore\n", m.ID, m.Status)
		return
	}
	targets := meeting.Targets(m.Status)
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, string(t))
	}
	fmt.Fprintf(cli.out, "a %s meeting can only move to: %s\n", m.Status, strings.Join(names, ", "))
}

// watch polls the server and prints every meeting event of the board until ctx is done.
func (cli *commandLine) watch(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("watch")
	withSlots := fs.Bool("slots", false, "Also print the slots of the student of each event.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	board, broker, err := cli.newBoard(ctx)
	if err != nil {
		return err
	}
	defer board.Close()

	poller, err := meeting.NewPoller(board, broker, cli.conf.Meetings.PollInterval, cli.logger)
	if err != nil {
		return err
	}
	sub := broker.Subscribe(cli.conf.Meetings.SubscriberBuffer)
	defer sub.Unsubscribe()

	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	fmt.Fprintf(cli.out, "watching meetings every %s\n", cli.conf.Meetings.PollInterval)
	for {
		select {
		case e := <-sub.C:
			fmt.Fprintf(cli.out, "%s %s: #%d %q with %s on %s (%s)\n",
				e.At.Format(time.RFC3339), e.Kind, e.Meeting.MeetingNumber, e.Meeting.Title,
				e.Meeting.StudentName, e.Meeting.ScheduledDate.Format(time.RFC3339), e.Meeting.Status)
			if *withSlots {
				cli.printStudentSlots(ctx, board, e.Meeting)
			}
		case err := <-done:
			return err
		}
	}
}

// printStudentSlots prints the slots of the student and project of m. A student's board shares
// the viewer's resolver, so the lists cached for the viewer answer when the student's cannot be fetched.
func (cli *commandLine) printStudentSlots(ctx context.Context, board *meeting.Board, m meeting.Meeting) {
	sb := board
	if board.Viewer().ID != m.StudentID {
		var err error
		sb, err = meeting.NewBoard(meeting.BoardConfig{
			Viewer:   meeting.Viewer{ID: m.StudentID, Role: user.RoleStudent},
			Gateway:  cli.client,
			Broker:   meeting.NewBroker(),
			Resolver: board.Resolver(),
			Recent:   cli.recent,
			Buffer:   cli.conf.Meetings.SubscriberBuffer,
			Logger:   cli.logger,
		})
		if err != nil {
			cli.logger.Warn(fmt.Sprintf("creating board of student %s: %v", m.StudentID, err), err)
			return
		}
		defer sb.Close()
		sb.Refresh(ctx, false)
	}

	slots, _ := sb.Slots(m.ProjectID)
	fmt.Fprintf(cli.out, "  slots of %s (%s):", m.StudentName, sb.Source())
	for _, slot := range slots {
		fmt.Fprintf(cli.out, " %d:%s", slot.MeetingNumber, slot.Status)
	}
	fmt.Fprintln(cli.out)
}

func (cli *commandLine) printMeetings(meetings []meeting.Meeting) {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTITLE\tSTUDENT\tDATE\tSTATUS")
	for _, m := range meetings {
		id, date := m.ID, m.ScheduledDate.Format("2006-01-02 15:04")
		if m.IsPlaceholder {
			id, date = "-", "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", m.MeetingNumber, id, m.Title, m.StudentName, date, m.Status)
	}
	_ = w.Flush()
}
