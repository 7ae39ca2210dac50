// Package cli holds the forumd commands and the providers they resolve
// through the injector.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	do "github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/internal/auth"
	"github.com/goliatone/go-forum-cache/internal/config"
	"github.com/goliatone/go-forum-cache/internal/httpapi"
	"github.com/goliatone/go-forum-cache/pkg/di"
	"github.com/goliatone/go-forum-cache/service"
	"github.com/goliatone/go-forum-cache/store"
)

const blocklistSweepInterval = 10 * time.Minute

// Command creates and returns the root CLI command.
func Command(i do.Injector) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:           "forumd",
		Long:          `A forum backend with read-through cached views.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		Serve(i),
		Migrate(i),
		Seed(i),
	)

	return cmd, nil
}

func Serve(i do.Injector) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := do.MustInvoke[*config.Config](i)
			logger := do.MustInvoke[*zap.Logger](i)
			defer func() { _ = logger.Sync() }()
			db := do.MustInvoke[*bun.DB](i)
			defer db.Close()

			logger.Debug("configuration loaded", zap.String("config", cfg.String()))

			if migrate {
				if err := store.CreateSchema(ctx, db); err != nil {
					return err
				}
			}

			srv, err := do.Invoke[*httpapi.Server](i)
			if err != nil {
				return err
			}
			if mem, ok := do.MustInvoke[auth.Blocklist](i).(*auth.MemoryBlocklist); ok {
				go sweep(ctx, mem, logger)
			}

			return httpapi.ListenAndServe(ctx, cfg.HTTPAddr, srv.Routes(), logger.Named("http"))
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "create missing tables before serving")
	return cmd
}

func Migrate(i do.Injector) *cobra.Command {
	var drop bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db := do.MustInvoke[*bun.DB](i)
			defer db.Close()
			logger := do.MustInvoke[*zap.Logger](i)

			if drop {
				if err := store.DropSchema(ctx, db); err != nil {
					return err
				}
				logger.Info("tables dropped")
			}
			if err := store.CreateSchema(ctx, db); err != nil {
				return err
			}
			logger.Info("tables created")
			return nil
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "drop every table first")
	return cmd
}

func Seed(i do.Injector) *cobra.Command {
	var users int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo users, subreddits, posts and comments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db := do.MustInvoke[*bun.DB](i)
			defer db.Close()
			if err := store.CreateSchema(ctx, db); err != nil {
				return err
			}

			container := do.MustInvoke[*di.Container](i)
			n, err := SeedDemo(ctx, container.Forum(), users)
			if err != nil {
				return err
			}
			do.MustInvoke[*zap.Logger](i).Info("database seeded", zap.Int("users", n))
			return nil
		},
	}

	cmd.Flags().IntVar(&users, "num_users", 3, "number of users")
	return cmd
}

// DemoPassword is the password of every seeded account.
const DemoPassword = "password"

// SeedDemo registers numUsers demo accounts; each creates a subreddit and a
// post, and comments on the previous user's post. It returns the number of
// users created.
func SeedDemo(ctx context.Context, f *service.Forum, numUsers int) (int, error) {
	if numUsers < 1 {
		return 0, fmt.Errorf("num_users must be at least 1: %w", forum.ErrInvalidInput)
	}

	var prev *forum.PostDetail
	for n := 1; n <= numUsers; n++ {
		name := fmt.Sprintf("demo_user_%d", n)
		user, err := f.RegisterUser(ctx, service.RegisterInput{
			Username: name,
			Email:    name + "@example.com",
			Password: DemoPassword,
		})
		if err != nil {
			return n - 1, fmt.Errorf("seed user %s: %w", name, err)
		}
		actor := forum.Actor{ID: user.ID, Username: user.Username}

		sub, err := f.CreateSubreddit(ctx, actor, service.SubredditInput{
			Name:        fmt.Sprintf("demo_%d", n),
			Description: fmt.Sprintf("Demo community number %d", n),
		})
		if err != nil {
			return n, err
		}
		post, err := f.CreatePost(ctx, actor, service.PostInput{
			SubredditID: sub.ID,
			Title:       fmt.Sprintf("Hello from %s", name),
			Text:        "First post in a freshly seeded forum.",
		})
		if err != nil {
			return n, err
		}

		if prev != nil {
			if _, err := f.JoinSubreddit(ctx, actor, prev.SubredditID); err != nil {
				return n, err
			}
			if _, err := f.AddComment(ctx, actor, prev.ID, service.CommentInput{Comment: "Welcome aboard"}); err != nil {
				return n, err
			}
		}
		prev = &post
	}
	return numUsers, nil
}

func sweep(ctx context.Context, blocklist *auth.MemoryBlocklist, logger *zap.Logger) {
	ticker := time.NewTicker(blocklistSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := blocklist.Sweep(); n > 0 {
				logger.Debug("expired revocations dropped", zap.Int("count", n))
			}
		}
	}
}
