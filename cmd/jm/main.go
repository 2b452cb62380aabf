package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"journalmate/internal/app"
	"journalmate/internal/config"
	"journalmate/internal/db"
	"journalmate/internal/engine"
	"journalmate/internal/genai"
	"journalmate/internal/migrate"
	"journalmate/internal/planner"
	"journalmate/internal/registry"
	"journalmate/internal/repo"
	"journalmate/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "jm",
	Short: "JournalMate CLI",
	Long: `JournalMate turns a free-form request into an actionable plan.
How it works:
- Workspace: your .journalmate directory holding only the database; config lives in journalmate.yml or the DB.
- Domains: travel, event, dining, wellness, learning, social, entertainment, work, shopping; unknown requests fall back to travel.
- Sessions: a dialogue that collects the facts a plan needs; quick mode asks only the critical questions, smart mode digs deeper.
- Plans: once a session is ready, the generator produces an activity with ordered tasks.
- Event log: diary of session and plan changes, view with 'jm log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("JOURNALMATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(domainsCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func planCmd() *cobra.Command {
	var request, domainHint, mode string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan an activity interactively",
		Long:  "Starts a session, asks the registry questions one at a time, then generates the plan once the essentials are covered.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if request == "" && len(args) > 0 {
				request = strings.Join(args, " ")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID := viper.GetString("actor-id")
				rec, prompt, err := e.StartSession(ctx, engine.StartSessionOptions{
					Request:    request,
					DomainHint: domainHint,
					Mode:       mode,
					ActorID:    actorID,
				})
				if err != nil {
					return err
				}
				fmt.Printf("Session %s (domain=%s mode=%s)\n", rec.ID, rec.Domain, rec.Mode)
				scanner := bufio.NewScanner(os.Stdin)
				for prompt != nil {
					fmt.Printf("\n%s\n", prompt.Text)
					if prompt.Examples != "" {
						fmt.Printf("  %s\n", prompt.Examples)
					}
					fmt.Print("> ")
					if !scanner.Scan() {
						if err := scanner.Err(); err != nil {
							return err
						}
						fmt.Println()
						_, abErr := e.AbandonSession(ctx, rec.ID, actorID)
						return abErr
					}
					var turn planner.Turn
					rec, turn, err = e.SubmitAnswer(ctx, rec.ID, scanner.Text(), actorID)
					if err != nil {
						return err
					}
					if turn.Reasked {
						fmt.Println("(an answer is needed to continue)")
					}
					if turn.Ready {
						break
					}
					prompt = turn.Question
				}
				fmt.Println("\nGenerating plan...")
				p, err := e.GeneratePlan(ctx, rec.ID, actorID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("\n%s\n", p.ActivityTitle)
				if p.ActivitySummary != "" {
					fmt.Println(p.ActivitySummary)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Task", "Priority", "Estimate"})
				for _, t := range p.Tasks {
					tw.AppendRow(table.Row{t.Position, t.Title, t.Priority, t.TimeEstimate})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&request, "request", "", "what you want to plan")
	cmd.Flags().StringVar(&domainHint, "domain", "", "domain override (skips detection)")
	cmd.Flags().StringVar(&mode, "mode", "", "quick or smart")
	return cmd
}

func domainsCmd() *cobra.Command {
	d := &cobra.Command{
		Use:   "domains",
		Short: "Question registry",
		Long:  "The registry holds a fixed question catalog per domain. Quick mode asks only priority 1 questions; smart mode asks all of them.",
	}
	d.AddCommand(domainsListCmd())
	d.AddCommand(domainsQuestionsCmd())
	return d
}

func domainsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			type row struct {
				Key     string `json:"key"`
				Default bool   `json:"default,omitempty"`
			}
			var out []row
			for _, dom := range registry.Domains {
				out = append(out, row{Key: string(dom), Default: dom == registry.DefaultDomain})
			}
			return printJSONOrTable(out)
		},
	}
	return cmd
}

func domainsQuestionsCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "questions <domain>",
		Short: "Show a domain's question catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := planner.ParseMode(mode)
			if err != nil {
				return err
			}
			dom := registry.ParseDomain(args[0])
			questions := registry.Default().QuestionsForDomain(dom, m.MaxPriority())
			if viper.GetBool("json") {
				return printJSON(questions)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Order", "Field", "Priority", "Prompt"})
			for i, q := range questions {
				tw.AppendRow(table.Row{i + 1, q.Field, q.Priority, q.Prompt})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "quick or smart")
	return cmd
}

func sessionCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "session",
		Short: "Manage sessions",
	}
	s.AddCommand(sessionListCmd())
	s.AddCommand(sessionShowCmd())
	s.AddCommand(sessionAbandonCmd())
	return s
}

func sessionListCmd() *cobra.Command {
	var f repo.SessionFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListSessions(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Domain", "Mode", "Status", "Updated"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Domain, s.Mode, s.Status, s.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Domain, "domain", "", "domain filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func sessionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session with collected fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				s, err := r.GetSession(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func sessionAbandonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abandon <session-id>",
		Short: "Abandon a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.AbandonSession(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func plansCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "plans",
		Short: "Inspect generated plans",
	}
	p.AddCommand(plansListCmd())
	p.AddCommand(plansShowCmd())
	return p
}

func plansListCmd() *cobra.Command {
	var f repo.PlanFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListPlans(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Domain", "Activity", "Tasks", "Created"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Domain, p.ActivityTitle, len(p.Tasks), p.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Domain, "domain", "", "domain filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func plansShowCmd() *cobra.Command {
	var bySession bool
	cmd := &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a plan with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var err error
				var p any
				if bySession {
					p, err = r.GetPlanBySession(ctx, args[0])
				} else {
					p, err = r.GetPlan(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().BoolVar(&bySession, "by-session", false, "look up by session id")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Long:  "Session counts by status, total plans, and the active config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				counts, err := e.Repo.CountSessionsByStatus(ctx)
				if err != nil {
					return err
				}
				plans, err := e.Repo.CountPlans(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{
					"service":        e.Config.Service.Name,
					"default_domain": e.Config.Service.DefaultDomain,
					"session_counts": counts,
					"plan_count":     plans,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("service: %s (default domain %s)\n", e.Config.Service.Name, e.Config.Service.DefaultDomain)
				fmt.Printf("plans: %d\n", plans)
				for status, n := range counts {
					fmt.Printf("sessions %s: %d\n", status, n)
				}
				return nil
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect service config",
		Long:  "Config is stored in the DB and can be seeded or overridden from journalmate.yml in the workspace.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configImportCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default journalmate.yml to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "journalmate", "service name")
	return cmd
}

func configImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import config into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = config.Path(viper.GetString("workspace"))
			}
			cfg, err := config.FromFile(file)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.UpsertServiceConfig(ctx, cfg); err != nil {
					return err
				}
				fmt.Println("imported", file)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config file (defaults to workspace journalmate.yml)")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: sessions started, answers recorded, plans generated or failed.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}

func apikeyCmd() *cobra.Command {
	a := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "API keys authenticate HTTP clients via the X-Api-Key header. Only the hash is stored; the raw key prints once at creation.",
	}
	a.AddCommand(apikeyCreateCmd())
	a.AddCommand(apikeyListCmd())
	a.AddCommand(apikeyDeleteCmd())
	return a
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				rec, raw := server.NewAPIKey(viper.GetString("actor-id"), name)
				if err := r.InsertAPIKey(ctx, nil, rec); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": rec.ID, "actor_id": rec.ActorID, "key": raw})
				}
				fmt.Println("key id:", rec.ID)
				fmt.Println("api key (store it now, it is not shown again):", raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
				for _, k := range items {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor filter")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := app.ResolveConfig(cmd.Context(), workspace, r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			wireGenerator(&e, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("JOURNALMATE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				fmt.Println("WARNING: JOURNALMATE_JWT_SECRET not set; accepting the legacy X-Actor-Id header")
				authCfg.AllowLegacyActorHeader = true
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving JournalMate API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	cfg, err := app.ResolveConfig(ctx, workspace, r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	wireGenerator(&e, cfg)
	return fn(ctx, e)
}

func wireGenerator(e *engine.Engine, cfg *config.Config) {
	if cfg == nil || strings.TrimSpace(cfg.Generator.Endpoint) == "" {
		return
	}
	client := genai.New(cfg.Generator.Endpoint, cfg.Generator.Model, cfg.GeneratorAPIKey())
	if cfg.Generator.TimeoutSeconds > 0 {
		client.HTTP.Timeout = time.Duration(cfg.Generator.TimeoutSeconds) * time.Second
	}
	e.Generator = client
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	return fn(ctx, r)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
