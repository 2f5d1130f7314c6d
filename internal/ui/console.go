// Package ui is the terminal front-end: it renders view descriptors and
// translates line input into controller calls.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/smartest-app/smartest-client/internal/api"
	"github.com/smartest-app/smartest-client/internal/catalog"
	"github.com/smartest-app/smartest-client/internal/question"
	"github.com/smartest-app/smartest-client/internal/results"
	"github.com/smartest-app/smartest-client/internal/session"
	"github.com/smartest-app/smartest-client/internal/single"
	"github.com/smartest-app/smartest-client/internal/view"
	"github.com/smartest-app/smartest-client/pkg/clienterr"
)

// Console runs the interactive menu loop.
type Console struct {
	catalog *catalog.Catalog
	client  *api.Client
	session *session.Controller
	logger  zerolog.Logger

	in      *bufio.Scanner
	out     io.Writer
	pdfPath string
}

// New builds a console over stdin/stdout.
func New(cat *catalog.Catalog, client *api.Client, sess *session.Controller, pdfPath string, logger zerolog.Logger) *Console {
	return &Console{
		catalog: cat,
		client:  client,
		session: sess,
		logger:  logger,
		in:      bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
		pdfPath: pdfPath,
	}
}

// Run shows the main menu until the user quits or ctx is canceled.
func (c *Console) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.printf("\n=== SmarTest ===\n")
		c.printf("  1) browse questions\n")
		c.printf("  2) answer a random question\n")
		c.printf("  3) take a test\n")
		c.printf("  4) generate questions\n")
		c.printf("  5) delete a question\n")
		c.printf("  6) clear all questions\n")
		c.printf("  7) export questions to PDF\n")
		c.printf("  q) quit\n")

		choice, ok := c.readLine("> ")
		if !ok {
			return nil
		}
		switch strings.TrimSpace(choice) {
		case "1":
			c.browse(ctx)
		case "2":
			c.answerRandom(ctx)
		case "3":
			c.runTest(ctx)
		case "4":
			c.generate(ctx)
		case "5":
			c.deleteQuestion(ctx)
		case "6":
			c.clearAll(ctx)
		case "7":
			c.exportPDF(ctx)
		case "q", "quit", "exit":
			return nil
		}
	}
}

func (c *Console) browse(ctx context.Context) {
	summaries, err := c.catalog.ListSummaries(ctx)
	if err != nil {
		c.printf("Could not load questions: %v\n", err)
		summaries = c.catalog.Snapshot()
	}
	if len(summaries) == 0 {
		c.printf("No questions saved yet.\n")
		return
	}
	for _, s := range summaries {
		c.printf("#%d [%s] %s\n    %s...\n", s.ID, s.Type, s.Title, s.Preview)
	}
}

func (c *Console) answerRandom(ctx context.Context) {
	flow := single.NewFlow(c.catalog, c.client, c.logger)
	detail, err := flow.Begin(ctx)
	if err != nil {
		if errors.Is(err, clienterr.ErrNotFound) {
			c.printf("That question no longer exists; back to the catalog.\n")
			return
		}
		c.printf("%v\n", err)
		return
	}
	c.printf("\n%s\n\n%s\n", detail.Title, detail.Prompt)

	var answer question.Answer
	if flow.Kind() == question.KindMatrixGame {
		answer = c.collectMatrixAnswer(flow.Form())
	} else {
		text, ok := c.readLine("your answer> ")
		if !ok {
			return
		}
		if strings.TrimSpace(text) == "?" {
			correct, explanation, _ := flow.Reveal()
			c.printf("Correct answer: %s\n%s\n", correct, explanation)
			return
		}
		answer = question.TextAnswer(text)
	}

	sv, err := flow.Submit(ctx, answer)
	if err != nil {
		c.printf("%v\n", err)
		return
	}
	c.printSingleView(sv)
}

func (c *Console) runTest(ctx context.Context) {
	c.session.Reset()
	counts, err := c.session.BeginConfiguring(ctx)
	if err != nil {
		c.printf("Could not open test setup: %v\n", err)
		return
	}

	desc := view.ForSession(c.session.Snapshot())
	selection := make(map[string]int, len(counts))
	if desc.Setup != nil {
		for _, opt := range desc.Setup.Options {
			if !opt.Selectable {
				continue
			}
			line, ok := c.readLine(fmt.Sprintf("how many %q questions (0-%d)? ", opt.Type, opt.Available))
			if !ok {
				return
			}
			n, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				n = 0
			}
			selection[opt.Type] = n
		}
	}

	if err := c.session.Generate(ctx, selection); err != nil {
		c.printf("%v\n", err)
		return
	}
	if err := c.session.Start(ctx); err != nil {
		c.printf("%v\n", err)
		return
	}

	for {
		desc := view.ForSession(c.session.Snapshot())
		switch desc.Screen {
		case view.ScreenQuestion:
			if !c.stepQuestion(ctx, desc.Question) {
				c.session.Reset()
				return
			}
		case view.ScreenResults:
			tv, err := c.session.ResultView()
			if err != nil {
				c.printf("%v\n", err)
				return
			}
			c.printTestView(tv)
			return
		default:
			return
		}
	}
}

// stepQuestion renders one question screen and handles one command.
// Returns false when the user aborts the test.
func (c *Console) stepQuestion(ctx context.Context, qv *view.QuestionView) bool {
	if qv == nil {
		return false
	}
	c.printf("\n%s\n%s\n", qv.Heading, qv.Body)
	if qv.Matrix != nil {
		c.printMatrix(qv.Matrix)
		c.printf("commands: t ROW COL (toggle), n (no equilibrium), next, prev, goto N, finish, abort\n")
	} else {
		c.printf("current answer: %q\n", qv.Text.Draft)
		c.printf("commands: a TEXT (answer), next, prev, goto N, finish, abort\n")
	}

	line, ok := c.readLine("> ")
	if !ok {
		return false
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	var err error
	switch fields[0] {
	case "a":
		err = c.session.SetDraftText(strings.TrimSpace(strings.TrimPrefix(line, "a")))
	case "t":
		if len(fields) == 3 {
			row, _ := strconv.Atoi(fields[1])
			col, _ := strconv.Atoi(fields[2])
			err = c.session.ToggleCell(row-1, col-1)
		}
	case "n":
		err = c.session.ToggleNoEquilibrium()
	case "next":
		err = c.session.GotoQuestion(ctx, qv.Index+1)
	case "prev":
		err = c.session.GotoQuestion(ctx, qv.Index-1)
	case "goto":
		if len(fields) == 2 {
			n, _ := strconv.Atoi(fields[1])
			err = c.session.GotoQuestion(ctx, n-1)
		}
	case "finish":
		err = c.session.Finish(ctx)
	case "abort":
		return false
	}
	if err != nil && !errors.Is(err, session.ErrSuperseded) {
		c.printf("%v\n", err)
	}
	return true
}

func (c *Console) collectMatrixAnswer(form *question.NashForm) question.Answer {
	if form == nil {
		return question.MatrixGameAnswer{}
	}
	for {
		c.printMatrix(view.Matrix(matrixState(form)))
		c.printf("commands: t ROW COL (toggle), n (no equilibrium), submit\n")
		line, ok := c.readLine("> ")
		if !ok {
			return form.Answer()
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "t":
			if len(fields) == 3 {
				row, _ := strconv.Atoi(fields[1])
				col, _ := strconv.Atoi(fields[2])
				if err := form.ToggleCell(row-1, col-1); err != nil {
					c.printf("%v\n", err)
				}
			}
		case "n":
			form.ToggleNoEquilibrium()
		case "submit":
			return form.Answer()
		}
	}
}

func (c *Console) generate(ctx context.Context) {
	typeTag, ok := c.readLine("question type (n-queens, hanoi, coloring, knight, nash)> ")
	if !ok {
		return
	}
	countLine, ok := c.readLine("how many (1-10)? ")
	if !ok {
		return
	}
	count, err := strconv.Atoi(strings.TrimSpace(countLine))
	if err != nil || count <= 0 {
		c.printf("Invalid count.\n")
		return
	}
	if count > 10 {
		c.printf("At most 10 questions can be generated at once.\n")
		return
	}

	typeTag = strings.TrimSpace(typeTag)
	if count == 1 {
		detail, err := c.client.Generate(ctx, typeTag)
		if err != nil {
			c.printf("Generation failed: %v\n", err)
			return
		}
		c.printf("Generated #%d: %s\n", detail.ID, detail.Title)
		return
	}
	details, message, err := c.client.BatchGenerate(ctx, typeTag, count)
	if err != nil {
		c.printf("Generation failed: %v\n", err)
		return
	}
	if message != "" {
		c.printf("%s\n", message)
		return
	}
	c.printf("Generated %d questions of type %q.\n", len(details), typeTag)
}

func (c *Console) deleteQuestion(ctx context.Context) {
	line, ok := c.readLine("question id> ")
	if !ok {
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		c.printf("Invalid id.\n")
		return
	}
	msg, err := c.catalog.Delete(ctx, id)
	if err != nil {
		c.printf("Delete failed: %v\n", err)
		return
	}
	c.printf("%s\n", msg)
}

func (c *Console) clearAll(ctx context.Context) {
	confirm, ok := c.readLine("delete ALL saved questions? type yes> ")
	if !ok || strings.TrimSpace(confirm) != "yes" {
		return
	}
	msg, err := c.catalog.ClearAll(ctx)
	if err != nil {
		c.printf("Clear failed: %v\n", err)
		return
	}
	c.printf("%s\n", msg)
}

func (c *Console) exportPDF(ctx context.Context) {
	file, err := os.Create(c.pdfPath)
	if err != nil {
		c.printf("Cannot create %s: %v\n", c.pdfPath, err)
		return
	}
	defer file.Close()

	n, err := c.client.ExportPDF(ctx, file)
	if err != nil {
		c.printf("Export failed: %v\n", err)
		return
	}
	c.printf("Wrote %d bytes to %s\n", n, c.pdfPath)
}

func (c *Console) printMatrix(form *view.MatrixForm) {
	c.printf("\n        ")
	for _, label := range form.ColumnLabels {
		c.printf("%10s", label)
	}
	c.printf("\n")
	for _, row := range form.Rows {
		c.printf("  %4s |", row.Label)
		for _, cell := range row.Cells {
			mark := " "
			if cell.Selected {
				mark = "x"
			}
			c.printf(" [%s]%s", mark, cell.Payoff)
		}
		c.printf("\n")
	}
	no := " "
	if form.NoEquilibrium {
		no = "x"
	}
	c.printf("  [%s] no pure Nash equilibrium exists\n", no)
}

func (c *Console) printSingleView(sv results.SingleView) {
	c.printf("\nScore: %d%% (%s)\n%s\n", sv.Score, sv.Band, sv.Feedback)
	c.printf("Your answer: %s\n", sv.UserAnswer)
	c.printf("Correct answer: %s\n", sv.CorrectAnswer)
	if sv.Explanation != "" {
		c.printf("%s\n", sv.Explanation)
	}
}

func (c *Console) printTestView(tv results.TestView) {
	c.printf("\n=== Test result: %d%% (%s) ===\n%s\n", tv.Aggregate, tv.Band, tv.Feedback)
	for i, qv := range tv.Questions {
		c.printf("\n%d) score %d%% (%s)\n", i+1, qv.Score, qv.Band)
		c.printf("   your answer: %s\n", qv.UserAnswer)
		c.printf("   correct: %s\n", qv.CorrectAnswer)
	}
}

func (c *Console) readLine(prompt string) (string, bool) {
	c.printf("%s", prompt)
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func matrixState(form *question.NashForm) *session.MatrixState {
	table := form.Table()
	state := &session.MatrixState{
		Table:         *table,
		NoEquilibrium: form.NoEquilibriumSet(),
		Selected:      make([][]bool, len(table.Rows)),
	}
	for i := range table.Rows {
		state.Selected[i] = make([]bool, len(table.Cols))
		for j := range table.Cols {
			state.Selected[i][j] = form.CellSelected(i, j)
		}
	}
	return state
}
