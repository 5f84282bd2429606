package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/joymathews/my-daily-log-app/pkg/client"
	"github.com/joymathews/my-daily-log-app/pkg/config"
)

const usage = `daylog - daily log command line client

Usage:
  daylog login    -username <name>
  daylog register -username <name> -email <address>
  daylog verify   -username <name> -code <code>
  daylog log      -event <text> [-file <path>]
  daylog view     [-date YYYY-MM-DD]
  daylog dates
  daylog logout
`

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	storePath := os.Getenv("DAYLOG_SESSION_FILE")
	if storePath == "" {
		storePath, err = client.DefaultStorePath()
		if err != nil {
			log.Fatalf("Failed to locate session file: %v", err)
		}
	}
	store := client.NewFileStore(storePath)

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Cognito.Region))
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}
	cognito := cognitoidentityprovider.NewFromConfig(awsCfg)

	authenticator := client.NewAuthenticator(cognito, cognito, store, cfg.Cognito.AppClientID)
	session := client.NewSession(cognito, store, cfg.Cognito.AppClientID, func() {
		log.Warn("Session expired, please log in again")
	})
	api := client.NewClient(baseURL, session)

	switch os.Args[1] {
	case "login":
		runLogin(ctx, log, authenticator, os.Args[2:])
	case "register":
		runRegister(ctx, log, authenticator, os.Args[2:])
	case "verify":
		runVerify(ctx, log, authenticator, os.Args[2:])
	case "log":
		runLog(ctx, log, api, os.Args[2:])
	case "view":
		runView(ctx, log, api, os.Args[2:])
	case "dates":
		runDates(ctx, log, api)
	case "logout":
		if err := authenticator.Logout(); err != nil {
			log.Fatalf("Logout failed: %v", err)
		}
		log.Info("Logged out")
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runLogin(ctx context.Context, log *logrus.Logger, authenticator *client.Authenticator, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "user pool username")
	fs.Parse(args)

	if *username == "" {
		log.Fatal("login requires -username")
	}

	password := promptPassword(log, "Password: ")
	if _, err := authenticator.Login(ctx, *username, password); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	log.WithField("username", *username).Info("Logged in")
}

func runRegister(ctx context.Context, log *logrus.Logger, authenticator *client.Authenticator, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "user pool username")
	email := fs.String("email", "", "email address for the confirmation code")
	fs.Parse(args)

	if *username == "" || *email == "" {
		log.Fatal("register requires -username and -email")
	}

	password := promptPassword(log, "Choose a password: ")
	if err := authenticator.Register(ctx, *username, password, *email); err != nil {
		log.Fatalf("Registration failed: %v", err)
	}
	log.Info("Registered; check your email for a confirmation code, then run daylog verify")
}

func runVerify(ctx context.Context, log *logrus.Logger, authenticator *client.Authenticator, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	username := fs.String("username", "", "user pool username")
	code := fs.String("code", "", "emailed confirmation code")
	fs.Parse(args)

	if *username == "" || *code == "" {
		log.Fatal("verify requires -username and -code")
	}

	if err := authenticator.ConfirmRegistration(ctx, *username, *code); err != nil {
		log.Fatalf("Confirmation failed: %v", err)
	}
	log.Info("Account confirmed, you can now log in")
}

func runLog(ctx context.Context, log *logrus.Logger, api *client.Client, args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	event := fs.String("event", "", "event description")
	file := fs.String("file", "", "path of an image to attach")
	fs.Parse(args)

	var attachment *client.Attachment
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *file, err)
		}
		attachment = &client.Attachment{
			Name:        filepath.Base(*file),
			ContentType: contentTypeFor(*file),
			Data:        data,
		}
	}

	if err := api.LogEvent(ctx, *event, attachment); err != nil {
		log.Fatalf("Failed to log event: %v", err)
	}
	log.Info("Event logged successfully")
}

func runView(ctx context.Context, log *logrus.Logger, api *client.Client, args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	date := fs.String("date", "", "calendar date YYYY-MM-DD")
	fs.Parse(args)

	var items []client.Event
	var err error
	if *date != "" {
		items, err = api.ViewEventsByDate(ctx, *date)
	} else {
		items, err = api.ViewEvents(ctx)
	}
	if err != nil {
		log.Fatalf("Failed to fetch events: %v", err)
	}

	for _, item := range items {
		line := fmt.Sprintf("%s  %s", item.Timestamp, item.Event)
		if item.FileURL != "" {
			line += "  [" + item.FileURL + "]"
		}
		fmt.Println(line)
	}
	if len(items) == 0 {
		log.Info("No events found")
	}
}

func runDates(ctx context.Context, log *logrus.Logger, api *client.Client) {
	dates, err := api.EventDates(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch event dates: %v", err)
	}
	for _, date := range dates {
		fmt.Println(date)
	}
	if len(dates) == 0 {
		log.Info("No events found")
	}
}

func promptPassword(log *logrus.Logger, prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	return string(data)
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
