package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/bookstore-api/internal/domain/auth"
	"github.com/xenking/bookstore-api/internal/domain/book"
	"github.com/xenking/bookstore-api/internal/domain/user"
	"github.com/xenking/bookstore-api/internal/storage/mongodb"
)

type options struct {
	databaseURL   string
	databaseName  string
	booksFile     string
	adminUsername string
	adminPassword string
	force         bool
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "MongoDB connection URI (or BOOKSTORE_DATABASE_URL, DB_URL, MONGODB_URI env)")
	flag.StringVar(&opts.databaseName, "database-name", "book-store", "MongoDB database name")
	flag.StringVar(&opts.booksFile, "books-file", "", "path to a books JSON file, optionally gzip-compressed (.gz); defaults to the embedded catalog")
	flag.StringVar(&opts.adminUsername, "admin-username", "admin", "username of the admin account to create")
	flag.StringVar(&opts.adminPassword, "admin-password", "", "admin password (or BOOKSTORE_SEED_ADMIN_PASSWORD env); empty skips the admin")
	flag.BoolVar(&opts.force, "force", false, "insert the catalog even if books already exist")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	for _, key := range []string{"BOOKSTORE_DATABASE_URL", "DB_URL", "MONGODB_URI"} {
		if opts.databaseURL != "" {
			break
		}
		opts.databaseURL = os.Getenv(key)
	}
	if opts.databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url, BOOKSTORE_DATABASE_URL, DB_URL or MONGODB_URI")
	}
	if opts.adminPassword == "" {
		opts.adminPassword = os.Getenv("BOOKSTORE_SEED_ADMIN_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database", zap.String("database", opts.databaseName))

	db, err := mongodb.Connect(ctx, opts.databaseURL, opts.databaseName)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = db.Close(closeCtx)
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	books, err := loadCatalog(opts.booksFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	existing, err := mongodb.NewStatsRepository(db).CountBooks(ctx)
	if err != nil {
		return errors.Wrap(err, "count books")
	}
	if existing > 0 && !opts.force {
		lg.Info("Catalog already seeded, skipping books", zap.Int64("existing", existing))
	} else {
		n, err := insertBooks(ctx, book.NewService(mongodb.NewBookRepository(db)), books)
		if err != nil {
			return errors.Wrap(err, "insert books")
		}
		lg.Info("Inserted books", zap.Int("count", n))
	}

	if opts.adminPassword == "" {
		lg.Info("No admin password given, skipping admin account")
		return nil
	}
	return seedAdmin(ctx, lg, mongodb.NewUserRepository(db), opts.adminUsername, opts.adminPassword)
}

func seedAdmin(ctx context.Context, lg *zap.Logger, users user.Repository, username, password string) error {
	// A signing key is required by the service but never used: the seed tool
	// does not log in.
	tokens, err := auth.NewTokenIssuer([]byte("seed"), time.Minute)
	if err != nil {
		return err
	}
	svc, err := auth.NewService(auth.ServiceConfig{OpenAdminSignup: true}, users, auth.NewPasswordHasher(bcrypt.DefaultCost), tokens)
	if err != nil {
		return err
	}

	u, err := svc.Register(ctx, auth.RegisterRequest{Username: username, Password: password, Role: user.RoleAdmin}, nil)
	switch {
	case errors.Is(err, user.ErrDuplicate):
		lg.Info("Admin account already exists", zap.String("username", username))
		return nil
	case err != nil:
		return errors.Wrap(err, "register admin")
	}

	lg.Info("Created admin account", zap.String("username", u.Username), zap.String("id", u.ID))
	return nil
}
