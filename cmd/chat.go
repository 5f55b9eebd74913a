package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

var (
	chatModel   string
	chatSystem  string
	chatStream  bool
	chatTimeout int

	chatCmd = &cobra.Command{
		Use:   "chat <endpoint> <message...>",
		Short: "Send a one-shot chat message to an endpoint",
		Long: `Send a single chat message to an endpoint and print the reply. With
--stream the reply is printed incrementally as it arrives. The full exchange
is recorded in the audit log.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runChat,
	}
)

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model to chat with (default: endpoint's first model)")
	chatCmd.Flags().StringVar(&chatSystem, "system", "", "optional system prompt")
	chatCmd.Flags().BoolVar(&chatStream, "stream", false, "stream the reply")
	chatCmd.Flags().IntVarP(&chatTimeout, "timeout", "t", 0, "request timeout in seconds (default from config)")
}

func runChat(cmd *cobra.Command, args []string) error {
	endpoint, err := configMgr.FindEndpoint(args[0])
	if err != nil {
		return err
	}
	message := strings.Join(args[1:], " ")

	model := chatModel
	if model == "" && len(endpoint.Models) > 0 {
		model = endpoint.Models[0]
	}
	if model == "" {
		return fmt.Errorf("no model: endpoint %q has no model list, use --model", endpoint.Name)
	}

	settings := configMgr.GetSettings()
	timeout := chatTimeout
	if timeout <= 0 {
		timeout = settings.TestTimeout
	}
	stream := chatStream || settings.Stream

	executor, store, err := newExecutor()
	if err != nil {
		return err
	}
	defer store.Close()

	var messages []openai.ChatCompletionMessage
	if chatSystem != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: chatSystem,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	// Both paths deliver content through the handler: per delta when
	// streaming, once in full otherwise.
	var printed bool
	_, err = executor.SendChat(ctx, endpoint, req, func(chunk string) {
		printed = true
		fmt.Print(chunk)
	})
	if printed {
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	return nil
}
