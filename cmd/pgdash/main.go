package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/term"

	_ "github.com/lib/pq"

	"pgdash/internal/api"
	"pgdash/internal/config"
	"pgdash/internal/data"
	"pgdash/internal/logger"
	"pgdash/internal/service"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "create-user":
			handleCreateUser(os.Args[2:])
			return
		case "reset-password":
			handleResetPassword(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	// No subcommand — start server
	startServer()
}

func printHelp() {
	fmt.Println("pgdash - SQL dashboard for Postgres")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pgdash                                     Start the server")
	fmt.Println("  pgdash create-user -u <user> [-staff] [-superuser]")
	fmt.Println("                                             Create a user (interactive password)")
	fmt.Println("  pgdash reset-password -u <user>            Reset user password (interactive)")
	fmt.Println("  pgdash help                                Show this help")
}

func readPasswordTwice() (string, error) {
	fmt.Print("New password: ")
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", err
	}
	password := string(passBytes)

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if password != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func openMetaStore() (*sql.DB, *service.AuthService) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	db, err := data.InitDB(cfg.MetaDBPath)
	if err != nil {
		fmt.Printf("Failed to init database: %v\n", err)
		os.Exit(1)
	}
	userRepo := data.NewUserRepo(db)
	groupRepo := data.NewGroupRepo(db)
	return db, service.NewAuthService(userRepo, groupRepo)
}

func handleCreateUser(args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	username := fs.String("u", "", "Username to create")
	staff := fs.Bool("staff", false, "Grant the staff role (execute SQL)")
	superuser := fs.Bool("superuser", false, "Grant the superuser role")
	fs.Parse(args)

	if *username == "" {
		fmt.Println("Usage: pgdash create-user -u <username> [-staff] [-superuser]")
		os.Exit(1)
	}

	password, err := readPasswordTwice()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	db, authSvc := openMetaStore()
	defer db.Close()

	if _, err := authSvc.CreateUser(*username, password, *staff, *superuser); err != nil {
		fmt.Printf("Failed to create user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("User '%s' created.\n", *username)
}

func handleResetPassword(args []string) {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	username := fs.String("u", "", "Username to reset")
	fs.Parse(args)

	if *username == "" {
		fmt.Println("Usage: pgdash reset-password -u <username>")
		os.Exit(1)
	}

	password, err := readPasswordTwice()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	db, authSvc := openMetaStore()
	defer db.Close()

	if err := authSvc.ResetPassword(*username, password); err != nil {
		fmt.Printf("Failed to reset password: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Password for user '%s' has been reset successfully.\n", *username)
}

func startServer() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\nCheck .env file or environment.\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	if err := logger.Init(cfg.LogDir); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info.Println("Starting pgdash...")

	// 3. Metadata store (dashboards, users, groups)
	metaDB, err := data.InitDB(cfg.MetaDBPath)
	if err != nil {
		logger.Error.Fatalf("Failed to init metadata database: %v", err)
	}
	defer metaDB.Close()

	// 4. Postgres pool for query execution
	queryDB, err := sql.Open("postgres", cfg.DashboardDSN)
	if err != nil {
		logger.Error.Fatalf("Failed to open dashboard database: %v", err)
	}
	defer queryDB.Close()
	if err := queryDB.Ping(); err != nil {
		logger.Error.Fatalf("Failed to ping dashboard database: %v", err)
	}

	// 5. Repos and services
	dashRepo := data.NewDashboardRepo(metaDB)
	userRepo := data.NewUserRepo(metaDB)
	groupRepo := data.NewGroupRepo(metaDB)
	auditRepo := data.NewAuditRepo(metaDB)

	authSvc := service.NewAuthService(userRepo, groupRepo)
	signer := service.NewSigner(cfg.SigningKey)
	executor := service.NewQueryExecutor(queryDB, cfg.StatementTimeoutMs)
	exporter := service.NewExportStreamer(queryDB, cfg.ExportBatchSize)
	widgets := service.NewWidgetRegistry()

	// 6. Handlers
	templates := api.Templates()
	authHandler := api.NewAuthHandler(authSvc, cfg.SigningKey, templates)
	dashHandler := api.NewDashboardHandler(dashRepo, userRepo, auditRepo, authSvc,
		signer, executor, exporter, widgets, authHandler.Store(), templates, cfg)

	// 7. Router
	r := chi.NewRouter()
	r.Use(api.LoggingMiddleware)
	r.Use(api.SecurityHeadersMiddleware)

	loginLimiter := api.NewRateLimiter(5, 3) // 5 req/min, burst 3 (brute force protection)

	r.Get("/setup", authHandler.SetupPage)
	r.Post("/setup", authHandler.DoSetup)
	r.Get("/login", authHandler.LoginPage)
	r.With(loginLimiter.Middleware).Post("/login", authHandler.DoLogin)
	r.Get("/logout", authHandler.Logout)

	dashHandler.Routes(r)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	// Graceful shutdown channel
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info.Printf("Server listening on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-stop
	logger.Info.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error.Printf("Server shutdown error: %v", err)
	}
	logger.Info.Println("Server stopped")
}
