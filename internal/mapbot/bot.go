package mapbot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"choropleth/internal/logger"
)

// Prompt is printed before every question
const Prompt = "Ask me anything (type 'exit' to quit): "

// Bot answers questions read from a terminal until told to exit
type Bot struct {
	Interpreter Interpreter
	Client      *Client
}

// Run reads questions from in and writes answers to out. It returns when the
// user types exit, in is exhausted or ctx is cancelled.
func (b *Bot) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n"+Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, "exit") {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply, err := b.Reply(ctx, query)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n", reply)
	}
}

// Reply answers a single question. A map endpoint failure is an answer, not
// an error.
func (b *Bot) Reply(ctx context.Context, query string) (string, error) {
	req, err := b.Interpreter.Interpret(ctx, query)
	if err != nil {
		return "", err
	}

	answer, err := b.Client.Ask(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Component("mapbot").Warn("Map request failed", logger.Fields{"error": err.Error()})
		if errors.Is(err, ErrMapUnavailable) {
			return "Error: Failed to fetch map data", nil
		}
		return "Error: " + err.Error(), nil
	}
	return answer.String(), nil
}
