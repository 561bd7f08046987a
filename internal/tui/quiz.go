package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/stepdeck/internal/mail"
	"github.com/naveenspark/stepdeck/internal/playback"
	"github.com/naveenspark/stepdeck/internal/quiz"
	"github.com/naveenspark/stepdeck/pkg/domain"
)

// copyResultMsg reports a clipboard write.
type copyResultMsg struct {
	what string
	err  error
}

func copyCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{what: what, err: clipboard.WriteAll(text)}
	}
}

// quizView is the answer widget state layered over the player while a
// quiz session runs.
type quizView struct {
	cursor int
	email  string
	status string
	failed bool
}

func (v quizView) update(ctx context.Context, p *playback.Player, key string) (quizView, tea.Cmd) {
	s := p.Quiz()
	if s == nil {
		return quizView{}, nil
	}
	switch s.State() {
	case quiz.StateFeedback:
		if key == "enter" || key == " " {
			p.QuizContinue(ctx)
			return quizView{}, nil
		}
	case quiz.StateResults:
		return v.updateResults(ctx, p, s, key)
	case quiz.StateQuestion:
		if key == "shift+tab" {
			if p.QuizPrev() {
				return quizView{}, nil
			}
			return v, nil
		}
		if key == "enter" {
			l := s.Layout()
			if l.Question.Type() == domain.QuestionMultipleChoice && l.Answer.Choice == "" && v.cursor < len(l.Options) {
				l.Select(l.Options[v.cursor].ID)
			}
			p.QuizSubmit(ctx)
			return quizView{}, nil
		}
		return v.updateQuestion(s.Layout(), key), nil
	}
	return v, nil
}

func (v quizView) updateResults(ctx context.Context, p *playback.Player, s *quiz.Session, key string) (quizView, tea.Cmd) {
	if s.CollectEmail() {
		switch key {
		case "esc":
			p.QuizContinue(ctx)
			return quizView{}, nil
		case "enter":
			if strings.TrimSpace(v.email) == "" {
				p.QuizContinue(ctx)
				return quizView{}, nil
			}
			if err := p.SubmitQuizEmail(ctx, strings.TrimSpace(v.email)); err != nil {
				v.status, v.failed = err.Error(), true
				return v, nil
			}
			v.status, v.failed = "results sent to "+s.Emailed(), false
		default:
			v.email = editRune(v.email, key, maxEmailLen)
		}
		return v, nil
	}
	switch key {
	case "enter", "esc", " ":
		p.QuizContinue(ctx)
		return quizView{}, nil
	case "c":
		return v, copyCmd("quiz results", mail.RenderText(s.Report()))
	}
	return v, nil
}

func (v quizView) updateQuestion(l *quiz.Layout, key string) quizView {
	n := 0
	switch l.Question.Type() {
	case domain.QuestionMultipleChoice:
		n = len(l.Options)
	case domain.QuestionMatching:
		n = len(l.Prompts)
	case domain.QuestionOrdering:
		n = len(l.Items)
	case domain.QuestionFillBlank:
		l.SetText(editRune(l.Answer.Text, key, maxAnswerLen))
		return v
	}

	switch key {
	case "j", "down", "tab":
		if v.cursor < n-1 {
			v.cursor++
		}
	case "k", "up":
		if v.cursor > 0 {
			v.cursor--
		}
	}

	switch l.Question.Type() {
	case domain.QuestionMultipleChoice:
		if key == " " && v.cursor < n {
			l.Select(l.Options[v.cursor].ID)
		}
	case domain.QuestionMatching:
		if v.cursor >= n || len(l.Answers) == 0 {
			break
		}
		prompt := l.Prompts[v.cursor].ID
		switch key {
		case "l", "right", "h", "left":
			step := 1
			if key == "h" || key == "left" {
				step = -1
			}
			cur := slices.IndexFunc(l.Answers, func(p domain.Pair) bool { return p.ID == l.Answer.Matches[prompt] })
			if cur < 0 && step < 0 {
				cur = 0
			}
			next := (cur + step + len(l.Answers)) % len(l.Answers)
			l.Match(prompt, l.Answers[next].ID)
		case "x":
			l.Unmatch(prompt)
		}
	case domain.QuestionOrdering:
		switch key {
		case "K", "shift+up":
			if l.Move(v.cursor, v.cursor-1) {
				v.cursor--
			}
		case "J", "shift+down":
			if l.Move(v.cursor, v.cursor+1) {
				v.cursor++
			}
		}
	}
	return v
}

func (v quizView) view(s *quiz.Session, frame int) string {
	var b strings.Builder
	title := s.Quiz().Title
	if title == "" {
		title = "Quiz"
	}
	b.WriteString(selectedStyle.Render(title))

	switch s.State() {
	case quiz.StateQuestion:
		l := s.Layout()
		fmt.Fprintf(&b, "  %s\n\n", metaStyle.Render(fmt.Sprintf("question %d/%d", s.Index()+1, s.Len())))
		b.WriteString(normalStyle.Render(l.Question.Prompt) + "\n\n")
		b.WriteString(v.questionBody(l, frame))
	case quiz.StateFeedback:
		l := s.Layout()
		b.WriteString("\n\n" + normalStyle.Render(l.Question.Prompt) + "\n\n")
		if s.LastCorrect() {
			b.WriteString(okStyle.Render("✓ Correct") + "\n")
		} else {
			b.WriteString(errStyle.Render("✗ Incorrect") + "\n")
			b.WriteString(dimStyle.Render("correct answer: "+quiz.FormatCorrect(l.Question)) + "\n")
		}
	case quiz.StateResults:
		r := s.Report()
		fmt.Fprintf(&b, "\n\nscore %s\n\n", accentStyle.Render(r.Summary()))
		for i, q := range r.Questions {
			mark := okStyle.Render("✓")
			if !q.Correct {
				mark = errStyle.Render("✗")
			}
			fmt.Fprintf(&b, "%s %d. %s\n", mark, i+1, normalStyle.Render(truncStr(q.Prompt, 60)))
			fmt.Fprintf(&b, "     %s\n", dimStyle.Render("yours: "+q.UserAnswer))
			if !q.Correct {
				fmt.Fprintf(&b, "     %s\n", dimStyle.Render("correct: "+q.CorrectAnswer))
			}
		}
		if s.CollectEmail() {
			b.WriteString("\n" + renderInput("email results to: ", v.email, "you@example.com", frame) + "\n")
		} else if s.Emailed() != "" {
			b.WriteString("\n" + okStyle.Render("sent to "+s.Emailed()) + "\n")
		}
	}
	if v.status != "" {
		style := okStyle
		if v.failed {
			style = errStyle
		}
		b.WriteString("\n" + style.Render(v.status))
	}
	return quizBoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (v quizView) questionBody(l *quiz.Layout, frame int) string {
	var b strings.Builder
	pointer := func(i int) string {
		if i == v.cursor {
			return accentStyle.Render("> ")
		}
		return "  "
	}
	switch l.Question.Type() {
	case domain.QuestionMultipleChoice:
		for i, o := range l.Options {
			mark := "○"
			if o.ID == l.Answer.Choice {
				mark = accentStyle.Render("●")
			}
			fmt.Fprintf(&b, "%s%s %s\n", pointer(i), mark, o.Text)
		}
	case domain.QuestionFillBlank:
		b.WriteString(renderInput("> ", l.Answer.Text, "type your answer", frame) + "\n")
	case domain.QuestionMatching:
		for i, p := range l.Prompts {
			ans := dimStyle.Render("?")
			if id, ok := l.Answer.Matches[p.ID]; ok {
				for _, a := range l.Answers {
					if a.ID == id {
						ans = accentStyle.Render(a.Answer)
					}
				}
			}
			fmt.Fprintf(&b, "%s%s → %s\n", pointer(i), p.Prompt, ans)
		}
		b.WriteString("\n" + metaStyle.Render("choices: "+matchChoices(l)) + "\n")
	case domain.QuestionOrdering:
		for i, item := range l.Items {
			fmt.Fprintf(&b, "%s%d. %s\n", pointer(i), i+1, item)
		}
	}
	return b.String()
}

func matchChoices(l *quiz.Layout) string {
	texts := make([]string, len(l.Answers))
	for i, a := range l.Answers {
		texts[i] = a.Answer
	}
	return strings.Join(texts, " · ")
}

func quizHelp(s *quiz.Session) string {
	switch s.State() {
	case quiz.StateFeedback:
		return helpEntry("enter", "continue")
	case quiz.StateResults:
		if s.CollectEmail() {
			return helpEntry("enter", "send") + "  " + helpEntry("esc", "skip")
		}
		return helpEntry("enter", "close") + "  " + helpEntry("c", "copy results")
	}
	back := "  " + helpEntry("shift+tab", "previous")
	switch s.Layout().Question.Type() {
	case domain.QuestionMultipleChoice:
		return helpEntry("j/k", "move") + "  " + helpEntry("space", "select") + "  " + helpEntry("enter", "submit") + back
	case domain.QuestionMatching:
		return helpEntry("j/k", "prompt") + "  " + helpEntry("h/l", "answer") + "  " + helpEntry("x", "clear") + "  " + helpEntry("enter", "submit") + back
	case domain.QuestionOrdering:
		return helpEntry("j/k", "move") + "  " + helpEntry("J/K", "reorder") + "  " + helpEntry("enter", "submit") + back
	}
	return helpEntry("type", "answer") + "  " + helpEntry("enter", "submit") + back
}
