package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/parley/agent"
	"github.com/tbxark/parley/backend"
	"github.com/tbxark/parley/checkpoint"
	"github.com/tbxark/parley/interview"
	"github.com/tbxark/parley/types"
)

func main() {
	conf := flag.String("config", "config.json", "path to config file")
	checkpoints := flag.String("checkpoints", "checkpoints", "directory for checkpoint files")
	flag.Parse()
	config, err := backend.LoadConfig(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := startApp(context.Background(), config, *checkpoints); err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func startApp(ctx context.Context, config *backend.Config, checkpointDir string) error {
	slog.SetLogLoggerLevel(slog.LevelInfo)
	cm, err := backend.NewChatModel(ctx, config)
	if err != nil {
		return err
	}
	orchestrator, err := agent.New(agent.Config{Backend: cm})
	if err != nil {
		return err
	}

	def := intakeDefinition()
	if _, err = def.Build(); err != nil {
		return fmt.Errorf("intake definition: %w", err)
	}
	docCache, err := agent.NewLRUCache[*interview.Interview](128)
	if err != nil {
		return err
	}
	documents := agent.NewDocumentStore(docCache)
	history := agent.NewMemoryHistoryStore(agent.KeepSystemLastNTrimmer{N: 80})
	session := agent.NewSession(orchestrator, documents, history, func(ctx context.Context) *interview.Interview {
		doc, _ := def.Build()
		return doc
	})

	store, err := checkpoint.NewFileStore(checkpointDir)
	if err != nil {
		return err
	}

	interviewer := agent.NewInterviewer(
		"JobIntake",
		"Collects a job application through a short screening conversation",
		session,
	)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent: interviewer,
	})

	ctx = agent.WithSessionKey(ctx, "intake")
	// Opening turn: the interviewer speaks first.
	done, err := step(ctx, runner, nil, documents, store)
	if err != nil {
		return err
	}
	reader := bufio.NewReader(os.Stdin)
	for !done {
		fmt.Print("you: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("input closed, exiting.")
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		done, err = step(ctx, runner, []*schema.Message{schema.UserMessage(input)}, documents, store)
		if err != nil {
			return err
		}
	}
	return nil
}

func step(ctx context.Context, runner *adk.Runner, msgs []*schema.Message, documents *agent.DocumentStore, store checkpoint.Store) (bool, error) {
	iter := runner.Run(ctx, msgs)
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		if event.Err != nil {
			return false, event.Err
		}
		msg, mErr := event.Output.MessageOutput.GetMessage()
		if mErr != nil {
			return false, mErr
		}
		fmt.Printf("\ninterviewer: %s\n======\n", msg.Content)
	}

	doc, ok, err := documents.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	env, err := checkpoint.Capture(doc, nil)
	if err != nil {
		return false, err
	}
	if err := store.Save(ctx, doc.ID, env); err != nil {
		return false, err
	}
	if doc.Complete() {
		printSummary(doc)
		return true, nil
	}
	return false, nil
}

func printSummary(doc *interview.Interview) {
	fmt.Println("\nInterview complete.")
	for _, class := range []types.Lifecycle{types.LifecycleNormal, types.LifecycleSilent, types.LifecycleDerived} {
		briefs := doc.Briefs(class)
		if len(briefs) == 0 {
			continue
		}
		fmt.Println(types.FormatCollectedTable(string(class)+" fields", briefs))
	}
}
