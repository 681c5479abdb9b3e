package cli

import (
	stdcontext "context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/reaper/internal/config"
	"github.com/Paintersrp/reaper/internal/logging"
	"github.com/Paintersrp/reaper/internal/node"
	"github.com/Paintersrp/reaper/internal/runtime"

	_ "github.com/Paintersrp/reaper/internal/runtime/docker"
	_ "github.com/Paintersrp/reaper/internal/runtime/process"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	ctx := &context{}

	root := &cobra.Command{
		Use:   "reaper",
		Short: "Stop runaway processes by executable name",
	}

	root.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Path to reaper configuration (default $"+config.EnvConfig+" or "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Log level (overrides configuration)")
	root.PersistentFlags().StringVar(&ctx.logFormat, "log-format", "", "Log format: text or json (overrides configuration)")

	root.AddCommand(newInvokeCmd(ctx))
	root.AddCommand(newListCmd(ctx))
	root.AddCommand(newNodesCmd(ctx))
	root.AddCommand(newServeCmd(ctx))
	root.AddCommand(newTuiCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// context carries state shared by every subcommand of one CLI execution.
type context struct {
	configPath string
	logLevel   string
	logFormat  string

	// tables overrides the registered backends; nil uses runtime.NewRegistry.
	tables runtime.Registry

	mu     sync.Mutex
	cfg    *config.Config
	logger *logrus.Logger
	nodes  *node.Registry
}

func (c *context) loadConfig() (*config.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configLocked()
}

func (c *context) configLocked() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Resolve(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	c.cfg = cfg
	return cfg, nil
}

// log returns the process-wide logger writing to the command's stderr.
func (c *context) log(cmd *cobra.Command) (*logrus.Logger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logLocked(cmd.ErrOrStderr())
}

func (c *context) logLocked(w io.Writer) (*logrus.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.configLocked()
	if err != nil {
		return nil, err
	}
	logger, err := logging.Configure(cfg.Log.Level, cfg.Log.Format, w)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

func (c *context) registry(cmd *cobra.Command) (*node.Registry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nodes != nil {
		return c.nodes, nil
	}
	cfg, err := c.configLocked()
	if err != nil {
		return nil, err
	}
	logger, err := c.logLocked(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	tables := c.tables
	if tables == nil {
		tables = runtime.NewRegistry()
	}
	reg, err := node.Build(cfg, tables, node.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	c.nodes = reg
	return reg, nil
}

// lookupNode returns the named node, or the first declared node when name is
// empty.
func (c *context) lookupNode(cmd *cobra.Command, name string) (*node.Node, error) {
	reg, err := c.registry(cmd)
	if err != nil {
		return nil, err
	}
	if name == "" {
		if n := reg.Default(); n != nil {
			return n, nil
		}
		return nil, fmt.Errorf("no nodes configured")
	}
	n, ok := reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown node %q", name)
	}
	return n, nil
}

func supportsInteractiveOutput(cmd *cobra.Command) bool {
	file, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
