package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskflow/taskflow-go/apiclient"
	"github.com/taskflow/taskflow-go/auth"
	"github.com/taskflow/taskflow-go/credentials"
	"github.com/taskflow/taskflow-go/internal/config"
	"github.com/taskflow/taskflow-go/internal/utils"
	"github.com/taskflow/taskflow-go/tasks"
	"github.com/taskflow/taskflow-go/teams"
	"github.com/taskflow/taskflow-go/token"
)

const requestTimeout = 30 * time.Second

// app is the composition root: one credential store, one refresher, three
// backend clients sharing both.
type app struct {
	config  config.Config
	store   credentials.Store
	session *auth.SessionManager
	auth    *auth.Service
	teams   *teams.Service
	tasks   *tasks.Service
}

func main() {
	_ = godotenv.Load()
	setupLogging()

	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func setupLogging() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}

	c := config.New()
	a, err := newApp(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	command, rest := args[0], args[1:]
	switch command {
	case "login":
		return a.login(ctx, rest)
	case "signup":
		return a.signup(ctx, rest)
	case "logout":
		a.session.Logout()
		fmt.Println("logged out")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "users":
		return a.listUsers(ctx)
	case "teams":
		return a.listTeams(ctx)
	case "team":
		return a.teamDetails(ctx, rest)
	case "tasks":
		return a.listTasks(ctx, rest)
	case "task":
		return a.taskDetails(ctx, rest)
	case "update":
		return a.updateTask(ctx, rest)
	case "download":
		return a.download(ctx, rest)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func newApp(c config.Config) (*app, error) {
	store, err := newStore(c)
	if err != nil {
		return nil, err
	}

	// The session manager is built further down but must hear about failed
	// refreshes; the handler closes over it.
	var session *auth.SessionManager
	refresher, err := apiclient.NewRefresher(c.GetAuthBaseURL(), store,
		apiclient.WithRefresherLogger(log.Logger),
		apiclient.WithSessionInvalidatedHandler(func() {
			fmt.Fprintln(os.Stderr, "session expired, please login again")
			if session != nil {
				session.Invalidate()
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	authClient, err := apiclient.New(c.GetAuthBaseURL(), store, refresher, apiclient.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}
	teamClient, err := apiclient.New(c.GetTeamBaseURL(), store, refresher, apiclient.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}
	taskClient, err := apiclient.New(c.GetTaskBaseURL(), store, refresher, apiclient.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}

	authService, err := auth.NewService(authClient, refresher, store)
	if err != nil {
		return nil, err
	}
	session, err = auth.NewSessionManager(authService, store, auth.WithSessionLogger(log.Logger))
	if err != nil {
		return nil, err
	}
	teamService, err := teams.NewService(teamClient)
	if err != nil {
		return nil, err
	}
	taskService, err := tasks.NewService(taskClient)
	if err != nil {
		return nil, err
	}

	return &app{
		config:  c,
		store:   store,
		session: session,
		auth:    authService,
		teams:   teamService,
		tasks:   taskService,
	}, nil
}

func newStore(c config.Config) (credentials.Store, error) {
	if endpoint := c.GetRedisEndpoint(); endpoint != "" {
		client := redis.NewClient(&redis.Options{Addr: endpoint})
		return credentials.NewRedisStore(client), nil
	}
	return credentials.NewFileStore(c.GetDataFolder())
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	displayBanner(a.config.GetAppName())
	profile, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", profile.FullName(), profile.RoleDisplay)
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password")
	confirm := fs.String("confirm", "", "password confirmation")
	first := fs.String("first", "", "first name (optional)")
	last := fs.String("last", "", "last name (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	profile, err := a.session.Signup(ctx, auth.SignupParams{
		Email:           *email,
		Password:        *password,
		ConfirmPassword: *confirm,
		FirstName:       *first,
		LastName:        *last,
	})
	if err != nil {
		return err
	}
	fmt.Printf("account created for %s\n", profile.Email)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.session.Bootstrap(ctx); err != nil {
		return err
	}
	user := a.session.CurrentUser()
	if user == nil {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("%s <%s> role=%s active=%t\n", user.FullName(), user.Email, user.Role, user.IsActive)
	if expiry, err := token.Expiry(a.store.AccessToken()); err == nil && !expiry.IsZero() {
		fmt.Printf("access token expires %s\n", expiry.Format(time.RFC3339))
	}
	return nil
}

func (a *app) listUsers(ctx context.Context) error {
	list, err := a.auth.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range list {
		fmt.Printf("%-5d %-30s %-12s active=%t\n", u.ID, u.Email, u.Role, u.IsActive)
	}
	return nil
}

func (a *app) listTeams(ctx context.Context) error {
	list, err := a.teams.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range list {
		leader := utils.Value(t.LeaderFullName)
		if leader == "" {
			leader = "-"
		}
		fmt.Printf("%-5d %-30s members=%-3d leader=%s\n", t.ID, t.Name, t.NumberOfMembers, leader)
	}
	return nil
}

func (a *app) teamDetails(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("team", flag.ExitOnError)
	id := fs.Int64("id", 0, "team id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	details, err := a.teams.Details(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s\n", details.Name, details.Description)
	for _, m := range details.Members {
		fmt.Printf("  %-5d %-30s %s\n", m.UserID, m.UserFullName, m.Role)
	}
	return nil
}

func (a *app) listTasks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	teamID := fs.Int64("team", 0, "filter by team id")
	assignee := fs.Int64("assignee", 0, "filter by assigned user id")
	status := fs.String("status", "", "filter by status (TODO/IN_PROGRESS/DONE)")
	from := fs.String("from", "", "due date from (YYYY-MM-DD)")
	to := fs.String("to", "", "due date to (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := a.tasks.List(ctx, tasks.Filter{
		TeamID:           *teamID,
		AssignedToUserID: *assignee,
		Status:           tasks.Status(*status),
		DueDateFrom:      *from,
		DueDateTo:        *to,
	})
	if err != nil {
		return err
	}
	for _, t := range list {
		fmt.Printf("%-36s %-12s %-8s due=%-12s %s\n", t.ID, t.Status, t.Priority, t.DueDate, t.Title)
	}
	return nil
}

func (a *app) taskDetails(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("task", flag.ExitOnError)
	id := fs.String("id", "", "task id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	details, err := a.tasks.Details(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("%s [%s/%s] due=%s\n%s\n", details.Title, details.Status, details.Priority, details.DueDate, details.Description)
	for _, f := range details.Files {
		fmt.Printf("  file %-36s %s\n", f.ID, f.File)
	}
	for _, c := range details.Comments {
		fmt.Printf("  comment by user %d at %s: %s\n", c.CreatedByUserID, c.CreatedAt, c.Text)
	}
	return nil
}

func (a *app) updateTask(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.String("id", "", "task id")
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	status := fs.String("status", "", "new status (TODO/IN_PROGRESS/DONE)")
	priority := fs.String("priority", "", "new priority (LOW/MEDIUM/HIGH)")
	assignee := fs.Int64("assignee", 0, "reassign to user id")
	due := fs.String("due", "", "new due date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only flags the user set make it into the payload; the rest of the task
	// is left untouched.
	var params tasks.UpdateParams
	if *title != "" {
		params.Title = utils.Ptr(*title)
	}
	if *description != "" {
		params.Description = utils.Ptr(*description)
	}
	if *status != "" {
		params.Status = utils.Ptr(tasks.Status(*status))
	}
	if *priority != "" {
		params.Priority = utils.Ptr(tasks.Priority(*priority))
	}
	if *assignee != 0 {
		params.AssignedToUserID = utils.Ptr(*assignee)
	}
	if *due != "" {
		params.DueDate = utils.Ptr(*due)
	}

	task, err := a.tasks.Update(ctx, *id, params)
	if err != nil {
		return err
	}
	fmt.Printf("updated %s [%s/%s] due=%s\n", task.Title, task.Status, task.Priority, task.DueDate)
	return nil
}

func (a *app) download(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	taskID := fs.String("task", "", "task id")
	fileID := fs.String("file", "", "file id")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	body, contentType, err := a.tasks.DownloadFile(ctx, *taskID, *fileID, true)
	if err != nil {
		return err
	}
	defer body.Close()

	dest := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		dest = f
	}
	if _, err := io.Copy(dest, body); err != nil {
		return err
	}
	log.Debug().Str("content_type", contentType).Msg("download complete")
	return nil
}

func displayBanner(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func usage() {
	fmt.Println(`usage: taskflow <command> [flags]

commands:
  login     -email -password
  signup    -email -password -confirm [-first] [-last]
  logout
  whoami
  users
  teams
  team      -id
  tasks     [-team] [-assignee] [-status] [-from] [-to]
  task      -id
  update    -id [-title] [-description] [-status] [-priority] [-assignee] [-due]
  download  -task -file [-out]`)
}
