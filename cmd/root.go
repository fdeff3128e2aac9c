// Package cmd provides the root command and CLI setup for phpguard.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/phpguard/internal/adapter"
	"github.com/mouse-blink/phpguard/internal/config"
	"github.com/mouse-blink/phpguard/internal/controller"
	"github.com/mouse-blink/phpguard/internal/domain"
	m "github.com/mouse-blink/phpguard/internal/model"
)

// workflow is injected by tests. When nil, one is built from the loaded
// configuration before each command runs.
var workflow domain.Workflow

var basedirFlag string
var reportsOutputDirFlag string
var failOnFlag string
var debugFlag bool
var plainFlag bool

var parallelFlag int
var excludeFlags []string
var changedFlag bool

// session is what the persistent pre-run resolved for the running command.
type session struct {
	basedir m.Path
	cfg     *config.Config
	log     *slog.Logger
	wf      domain.Workflow
}

var current *session

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

const checkLongDescription = `Checks that every PHP file of a phpBB extension starts with the
include guard

  if (!defined('IN_PHPBB')) { exit; }

Files without executable statements, language resources and files under
test directories may omit the guard.

Supports Go-style path patterns:
  - ./...            recursively scan the directory
  - ./includes       scan only the files directly in includes
  - ext.php ./acp    scan a file and a directory

Without paths the whole extension is checked recursively.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "phpguard [paths...]",
		Short:        "phpBB extension include guard checker",
		Long:         checkLongDescription,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			current = s

			return nil
		},
		RunE: runCheck,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&basedirFlag, "basedir", "b", "", "extension root (default: nearest directory with composer.json)")
	flags.StringVarP(&reportsOutputDirFlag, "output", "o", "", "reports directory (default: reports from "+config.FileName+")")
	flags.StringVar(&failOnFlag, "fail-on", "", "lowest severity that fails the run: notice, warning, fatal or none")
	flags.BoolVar(&debugFlag, "debug", false, "log debug output to stderr")
	flags.BoolVar(&plainFlag, "plain", false, "disable the interactive terminal UI")

	addCheckFlags(cmd)

	return cmd
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&parallelFlag, "parallel", "p", 0, "number of parallel workers (default: parallel from "+config.FileName+")")
	cmd.Flags().StringArrayVarP(&excludeFlags, "exclude", "x", nil, "exclude files matching a glob relative to the base directory (can be repeated)")
	cmd.Flags().BoolVar(&changedFlag, "changed", false, "only check files changed since the stored reports")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newSession(cmd *cobra.Command) (*session, error) {
	basedir, err := resolveBasedir(basedirFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(string(basedir))
	if err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if debugFlag {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	s := &session{basedir: basedir, cfg: cfg, log: log, wf: workflow}
	if s.wf == nil {
		s.wf = buildWorkflow(cmd, s)
	}

	return s, nil
}

// resolveBasedir prefers the flag, then the nearest composer.json above the
// working directory, then the working directory itself.
func resolveBasedir(flag string) (m.Path, error) {
	if flag != "" {
		abs, err := filepath.Abs(flag)
		if err != nil {
			return "", fmt.Errorf("basedir: %w", err)
		}

		return m.Path(abs), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("basedir: %w", err)
	}

	root, err := adapter.NewLocalSourceFSAdapter(adapter.SourceFSOptions{}).FindProjectRoot(m.Path(cwd))
	if err != nil {
		return m.Path(cwd), nil
	}

	return root, nil
}

// applyFlags layers explicitly set flags over the file configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("fail-on") {
		cfg.FailOn = failOnFlag
	}

	if cmd.Flags().Changed("output") {
		cfg.Reports = reportsOutputDirFlag
	}

	if cmd.Flags().Changed("parallel") {
		cfg.Parallel = parallelFlag
	}

	cfg.Exclude = append(cfg.Exclude, excludeFlags...)

	return cfg.Validate()
}

func buildWorkflow(cmd *cobra.Command, s *session) domain.Workflow {
	fsOpts := adapter.SourceFSOptions{
		Basedir:      s.basedir,
		Exclude:      s.cfg.Exclude,
		LanguageDirs: s.cfg.LanguageDirs,
	}

	checker := domain.NewGuardChecker(domain.GuardOptions{
		Sentinel:    s.cfg.Sentinel,
		TestDirs:    s.cfg.TestDirs,
		Misspelling: s.cfg.Misspelling.Enabled,
		MaxDistance: s.cfg.Misspelling.MaxDistance,
		LegacyLabel: s.cfg.LegacyLabel,
		Logger:      s.log,
	})

	ui := controller.NewUI(cmd, !plainFlag && controller.IsTTY(cmd.OutOrStdout()), s.log)

	return domain.NewWorkflow(
		adapter.NewLocalSourceFSAdapter(fsOpts),
		adapter.NewTreeSitterPHPAdapter(),
		adapter.NewReportStore(),
		adapter.NewLocalWatcher(fsOpts, adapter.DefaultDebounce, s.log),
		ui,
		checker,
		domain.WithBasedir(s.basedir),
		domain.WithLogger(s.log),
	)
}

// reportsDir resolves the configured reports directory against the base
// directory.
func (s *session) reportsDir() m.Path {
	if filepath.IsAbs(s.cfg.Reports) {
		return m.Path(s.cfg.Reports)
	}

	return m.Path(filepath.Join(string(s.basedir), s.cfg.Reports))
}

// parsePaths converts CLI arguments to roots, defaulting to the whole
// extension.
func (s *session) parsePaths(args []string) []m.Path {
	if len(args) == 0 {
		return []m.Path{m.Path(filepath.Join(string(s.basedir), "..."))}
	}

	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

func (s *session) checkArgs(args []string) domain.CheckArgs {
	return domain.CheckArgs{
		Paths:       s.parsePaths(args),
		Reports:     s.reportsDir(),
		Parallel:    s.cfg.Parallel,
		FailOn:      s.cfg.Threshold(),
		OnlyChanged: changedFlag,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	return current.wf.Check(cmd.Context(), current.checkArgs(args))
}
