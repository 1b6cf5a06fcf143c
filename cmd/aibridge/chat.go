package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/aibridge/core/client"
	"github.com/leofalp/aibridge/providers/ai"
)

type chatFlags struct {
	images      []string
	system      string
	model       string
	temperature float64
	maxTokens   int
	stream      bool
	interactive bool
}

func newChatCmd(global *globalFlags) *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: "Send a prompt, optionally with images",
		Long: `Send a prompt to the configured backend and print the answer.

With --image the request goes through vision. Image references may be
http(s) URLs, data URLs or local file paths. With --interactive the prompt
is read line by line from stdin; "/history" prints the recorded turns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			callOpts := flags.callOptions(cmd)
			if flags.interactive {
				return runInteractive(cmd.Context(), a.client, flags, callOpts, cmd.InOrStdin(), cmd.OutOrStdout())
			}

			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return errors.New("chat: a prompt is required")
			}
			messages := flags.baseMessages()
			messages = append(messages, userMessage(prompt, flags.images))

			_, err = send(cmd.Context(), a.client, messages, len(flags.images) > 0, flags.stream, callOpts, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringSliceVarP(&flags.images, "image", "i", nil, "image URL or path (repeatable)")
	cmd.Flags().StringVarP(&flags.system, "system", "s", "", "system prompt")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "model override")
	cmd.Flags().Float64VarP(&flags.temperature, "temperature", "t", 0, "sampling temperature (0-2)")
	cmd.Flags().IntVar(&flags.maxTokens, "max-tokens", 0, "maximum tokens to generate")
	cmd.Flags().BoolVar(&flags.stream, "stream", false, "print the answer as it arrives")
	cmd.Flags().BoolVar(&flags.interactive, "interactive", false, "read prompts from stdin")
	return cmd
}

// callOptions returns the per-call overrides for the flags actually set.
func (f chatFlags) callOptions(cmd *cobra.Command) []client.CallOption {
	var opts []client.CallOption
	if f.model != "" {
		opts = append(opts, client.WithModel(f.model))
	}
	if cmd.Flags().Changed("temperature") {
		opts = append(opts, client.WithTemperature(f.temperature))
	}
	if cmd.Flags().Changed("max-tokens") {
		opts = append(opts, client.WithMaxTokens(f.maxTokens))
	}
	return opts
}

func (f chatFlags) baseMessages() []ai.Message {
	if f.system == "" {
		return nil
	}
	return []ai.Message{{Role: ai.RoleSystem, Content: f.system}}
}

func userMessage(prompt string, images []string) ai.Message {
	message := ai.Message{Role: ai.RoleUser, Content: prompt}
	for _, image := range images {
		message.Parts = append(message.Parts, ai.ImagePart(image))
	}
	return message
}

// send dispatches messages through chat or vision, streamed or not, and
// writes the answer to out.
func send(ctx context.Context, c *client.Client, messages []ai.Message, vision, stream bool, opts []client.CallOption, out io.Writer) (*ai.Response, error) {
	if !stream {
		var (
			response *ai.Response
			err      error
		)
		if vision {
			response, err = c.Vision(ctx, messages, opts...)
		} else {
			response, err = c.Chat(ctx, messages, opts...)
		}
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(out, response.Content)
		return response, nil
	}

	chatStream := c.StreamChat
	if vision {
		chatStream = c.StreamVision
	}

	var response *ai.Response
	for event, err := range chatStream(ctx, messages, opts...).Iter() {
		if err != nil {
			fmt.Fprintln(out)
			return nil, err
		}
		switch event.Type {
		case ai.StreamEventPartial:
			fmt.Fprint(out, event.Fragment)
		case ai.StreamEventComplete:
			response = event.Response
		}
	}
	fmt.Fprintln(out)
	if response == nil {
		return nil, errors.New("chat: stream ended without a response")
	}
	return response, nil
}

// runInteractive keeps the conversation in memory and records every turn in
// the client history.
func runInteractive(ctx context.Context, c *client.Client, flags chatFlags, opts []client.CallOption, in io.Reader, out io.Writer) error {
	opts = append(opts, client.WithHistory())
	messages := flags.baseMessages()
	images := flags.images

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			fmt.Fprintln(out, c.History().Formatted())
			continue
		}

		// Images are attached to the first prompt only.
		turn := append(slices.Clip(messages), userMessage(line, images))
		response, err := send(ctx, c, turn, len(images) > 0, flags.stream, opts, out)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		messages = append(turn, ai.Message{Role: ai.RoleAssistant, Content: response.Content})
		images = nil
	}
}
