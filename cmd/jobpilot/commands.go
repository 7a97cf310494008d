package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/kalambet/jobpilot/internal/config"
	"github.com/kalambet/jobpilot/internal/storage"
	"github.com/kalambet/jobpilot/internal/supervisor"
)

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create or close chat sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session and print its id",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		id, err := createSession(cmd.Context(), client)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var sessionCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a session and delete its resume and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/sessions/"+args[0])
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Closed session %s", args[0])
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionNewCmd, sessionCloseCmd)
}

func createSession(ctx context.Context, c *apiClient) (string, error) {
	resp, err := c.post(ctx, "/sessions", nil)
	if err != nil {
		return "", err
	}
	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	if result["id"] == "" {
		return "", errors.New("server returned no session id")
	}
	return result["id"], nil
}

// --- upload ---

type submission struct {
	ResumeID string `json:"resume_id"`
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
}

type jobStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a resume (PDF or text) for analysis",
	Long: `Upload a resume (PDF or text) for analysis.

Examples:
  jobpilot upload ./resume.pdf --session 3f2a...
  jobpilot upload ./resume.txt --session 3f2a... --wait`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		wait, _ := cmd.Flags().GetBool("wait")
		if sessionID == "" {
			return fmt.Errorf("--session is required")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		sub, err := uploadResume(cmd.Context(), client, sessionID, filepath.Base(args[0]), data)
		if err != nil {
			return err
		}
		printSuccess("Queued resume %s (job %s)", sub.ResumeID, sub.JobID)

		if !wait {
			return nil
		}
		printStep("Analysing resume...")
		job, err := waitForJob(cmd.Context(), client, sub.JobID, time.Second)
		if err != nil {
			return err
		}
		if job.Status == storage.JobFailed {
			return fmt.Errorf("resume analysis failed: %s", job.LastError)
		}
		printSuccess("Resume analysed")
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("session", "", "session id")
	uploadCmd.Flags().Bool("wait", false, "wait until the analysis finishes")
}

func uploadResume(ctx context.Context, c *apiClient, sessionID, filename string, data []byte) (submission, error) {
	resp, err := c.upload(ctx, "/sessions/"+sessionID+"/resume", "resume", filename, data)
	if err != nil {
		return submission{}, err
	}
	var sub submission
	if err := decodeJSON(resp, &sub); err != nil {
		return submission{}, err
	}
	return sub, nil
}

// waitForJob polls the job until it completes or fails permanently.
func waitForJob(ctx context.Context, c *apiClient, jobID string, every time.Duration) (jobStatus, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		resp, err := c.get(ctx, "/jobs/"+jobID)
		if err != nil {
			return jobStatus{}, err
		}
		var job jobStatus
		if err := decodeJSON(resp, &job); err != nil {
			return jobStatus{}, err
		}
		if job.Status == storage.JobCompleted || job.Status == storage.JobFailed {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the assistant",
	Long: `Chat with the assistant. With a message argument, sends one message and
exits; otherwise starts an interactive session. Type "exit" to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if sessionID == "" {
			sessionID, err = createSession(ctx, client)
			if err != nil {
				return err
			}
			printStep("Started session %s", sessionID)
		}

		if len(args) > 0 {
			env, err := sendChat(ctx, client, sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printEnvelope(os.Stdout, env)
			return nil
		}
		return chatLoop(ctx, client, sessionID)
	},
}

func init() {
	chatCmd.Flags().String("session", "", "session id (default: start a new session)")
}

func sendChat(ctx context.Context, c *apiClient, sessionID, message string) (supervisor.Envelope, error) {
	resp, err := c.post(ctx, "/sessions/"+sessionID+"/chat", map[string]string{"message": message})
	if err != nil {
		return supervisor.Envelope{}, err
	}
	var env supervisor.Envelope
	if err := decodeJSON(resp, &env); err != nil {
		return supervisor.Envelope{}, err
	}
	return env, nil
}

func printEnvelope(w io.Writer, env supervisor.Envelope) {
	if !env.OK() {
		fmt.Fprintln(w, colorize(colorRed, env.Error))
		return
	}
	if env.Agent != "" {
		fmt.Fprintln(w, colorize(colorCyan, "["+env.Agent+"]"))
	}
	fmt.Fprintln(w, env.Response)
}

func chatLoop(ctx context.Context, c *apiClient, sessionID string) error {
	prompt := promptui.Prompt{Label: "you"}
	for {
		line, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		env, err := sendChat(ctx, c, sessionID, line)
		if err != nil {
			printError("%v", err)
			continue
		}
		printEnvelope(os.Stdout, env)
		fmt.Println()
	}
}

// --- history ---

type interaction struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Message   string `json:"message"`
	Intent    string `json:"intent"`
	Agent     string `json:"agent"`
	Error     string `json:"error"`
}

var historyCmd = &cobra.Command{
	Use:   "history <session>",
	Short: "List the messages routed in a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/sessions/%s/interactions?limit=%d", args[0], limit))
		if err != nil {
			return err
		}
		var rows []interaction
		if err := decodeJSON(resp, &rows); err != nil {
			return err
		}
		printHistory(os.Stdout, rows)
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of messages to list")
}

func printHistory(w io.Writer, rows []interaction) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, ix := range rows {
		msg := ix.Message
		if r := []rune(msg); len(r) > 80 {
			msg = string(r[:80]) + "..."
		}
		route := ix.Intent
		if ix.Agent != "" {
			route += " -> " + ix.Agent
		}
		if ix.Error != "" {
			route += " (error)"
		}
		fmt.Fprintf(w, "%s  %s  %s\n", colorize(colorCyan, ix.CreatedAt), route, msg)
	}
}

// --- job ---

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show the status of a resume analysis job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/jobs/"+args[0])
		if err != nil {
			return err
		}
		var job jobStatus
		if err := decodeJSON(resp, &job); err != nil {
			return err
		}
		printStatus("Status", "%s", job.Status)
		printStatus("Attempts", "%d", job.Attempts)
		if job.LastError != "" {
			printStatus("Last error", "%s", job.LastError)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in " + config.ConfigFilePath() + ".\n\nValid keys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
