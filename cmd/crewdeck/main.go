// =============================================================================
// Crewdeck 主入口
// =============================================================================
// Command line entry point for the crew management core.
//
// 使用方法:
//
//	crewdeck run --crew research_crew --topic "..."   # 执行一个 crew
//	crewdeck crews                                    # 列出已保存的 crews
//	crewdeck agents                                   # 列出 agent 定义
//	crewdeck stats                                    # 执行统计
//	crewdeck sync                                     # 手动同步检查
//	crewdeck version                                  # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/crewdeck"
	"github.com/BaSui01/crewdeck/config"
	"github.com/BaSui01/crewdeck/engine"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runExecute(os.Args[2:])
	case "crews":
		runCrews(os.Args[2:])
	case "agents":
		runAgents(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "sync":
		runSync(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// buildApp loads configuration and wires the application context.
func buildApp(configPath string, withChat bool) (*crewdeck.App, *zap.Logger) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)

	opts := []crewdeck.Option{crewdeck.WithLogger(logger)}
	if withChat {
		chat := engine.OpenAIChat("", cfg.Engine.APIKey, cfg.Engine.Model, nil)
		opts = append(opts, crewdeck.WithChatFunc(chat))
	}

	app, err := crewdeck.New(cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	return app, logger
}

func runExecute(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	crewName := fs.String("crew", "", "Crew name to execute")
	topic := fs.String("topic", "", "Topic for dynamic task synthesis")
	fs.Parse(args)

	if *crewName == "" {
		fmt.Fprintln(os.Stderr, "run requires --crew")
		os.Exit(1)
	}

	app, logger := buildApp(*configPath, true)
	defer app.Close()
	defer logger.Sync()

	inputs := map[string]string{}
	if *topic != "" {
		inputs["topic"] = *topic
	}

	result, err := app.Executor.ExecuteCrew(context.Background(), *crewName, inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result)
}

func runCrews(args []string) {
	fs := flag.NewFlagSet("crews", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	app, logger := buildApp(*configPath, false)
	defer app.Close()
	defer logger.Sync()

	infos := app.Crews.SavedCrewsInfo()
	if len(infos) == 0 {
		fmt.Println("No saved crews.")
		return
	}
	for _, info := range infos {
		state := "not loaded"
		if info.InMemory {
			state = "loaded"
		}
		fmt.Printf("%-24s %d agent(s)  %-10s %s\n", info.Name, info.AgentCount, state, info.Description)
	}
}

func runAgents(args []string) {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	app, logger := buildApp(*configPath, false)
	defer app.Close()
	defer logger.Sync()

	names := app.Agents.AvailableAgentNames()
	if len(names) == 0 {
		fmt.Println("No agent definitions.")
		return
	}
	for _, name := range names {
		def, _ := app.Agents.AgentInfo(name)
		fmt.Printf("%-24s %-32s tools: %d\n", name, def.Role, len(app.Agents.AgentTools(name)))
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	app, logger := buildApp(*configPath, false)
	defer app.Close()
	defer logger.Sync()

	stats, err := app.Executor.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read stats: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Total executions:   %d\n", stats.TotalExecutions)
	fmt.Printf("Success rate:       %.1f%%\n", stats.SuccessRate*100)
	fmt.Printf("Most executed crew: %s\n", stats.MostExecutedCrew)
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	app, logger := buildApp(*configPath, false)
	defer app.Close()
	defer logger.Sync()

	result := app.Sync.PerformFullSync()
	fmt.Printf("Status:        %s\n", result.Status)
	fmt.Printf("Crews checked: %d\n", result.CrewsChecked)
	if len(result.DriftedCrews) > 0 {
		fmt.Printf("Drifted crews: %v\n", result.DriftedCrews)
		fmt.Printf("Missing agents: %v\n", result.MissingAgents)
	}
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func printVersion() {
	fmt.Printf("Crewdeck %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Crewdeck - crew management core

Usage:
  crewdeck <command> [options]

Commands:
  run       Execute a crew (--crew, optional --topic)
  crews     List saved crews
  agents    List agent definitions
  stats     Show execution statistics
  sync      Run the configuration sync check
  version   Show version information
  help      Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)`)
}
