package research

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bassimeledath/aristo-bites/internal/config"
	"github.com/bassimeledath/aristo-bites/internal/metrics"
	"github.com/bassimeledath/aristo-bites/internal/workflow"
)

// QuestionGenerator produces sub-questions for a topic via a structured
// completion.
type QuestionGenerator interface {
	GenerateSubQuestions(ctx context.Context, topic string, n int) ([]string, error)
}

// AnswerRetriever answers one free-text question from the managed index.
type AnswerRetriever interface {
	Query(ctx context.Context, question string) (string, error)
}

// Workflow answers a topic by fanning it out into sub-questions, retrieving
// each answer through a bounded worker pool, and joining exactly N answers
// into one combined text.
type Workflow struct {
	log       *zap.Logger
	generator QuestionGenerator
	retriever AnswerRetriever
	cfg       config.ResearchConfig
	engine    *workflow.Engine
}

func NewWorkflow(log *zap.Logger, gen QuestionGenerator, ret AnswerRetriever, cfg config.ResearchConfig) *Workflow {
	w := &Workflow{
		log:       log,
		generator: gen,
		retriever: ret,
		cfg:       cfg,
	}
	e := workflow.NewEngine(log, cfg.RunTimeout)
	e.Handle(workflow.EventStart, 1, w.generateSubQuestions)
	e.Handle(workflow.EventSubQuestion, cfg.RetrievalWorkers, w.retrieveAnswer)
	e.Handle(workflow.EventAnswer, 1, w.combineAnswers)
	w.engine = e
	return w
}

// Research runs one topic through the workflow and returns the combined
// question/answer text.
func (w *Workflow) Research(ctx context.Context, topic string) (string, error) {
	combined, err := w.engine.Run(ctx, topic)
	if err != nil {
		metrics.ResearchRuns.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.ResearchRuns.WithLabelValues("ok").Inc()
	return combined, nil
}

func (w *Workflow) generateSubQuestions(ctx context.Context, run *workflow.Run, ev workflow.Event) error {
	topic := ev.(workflow.StartEvent).Topic

	questions, err := w.generator.GenerateSubQuestions(ctx, topic, w.cfg.SubQuestionCount)
	if err != nil {
		return fmt.Errorf("generate sub-questions: %w", err)
	}
	// The aggregator gates on exactly this count; a mismatch is fatal.
	if len(questions) != w.cfg.SubQuestionCount {
		return fmt.Errorf("expected %d sub-questions, but got %d", w.cfg.SubQuestionCount, len(questions))
	}

	w.log.Info("generated sub-questions",
		zap.String("run_id", run.ID),
		zap.String("topic", topic),
		zap.Int("count", len(questions)))

	// Sub-questions fan out as individual events only.
	for _, q := range questions {
		run.Emit(workflow.SubQuestionEvent{Question: q})
	}
	return nil
}

func (w *Workflow) retrieveAnswer(ctx context.Context, run *workflow.Run, ev workflow.Event) error {
	q := ev.(workflow.SubQuestionEvent).Question

	if strings.TrimSpace(q) == "" {
		run.Emit(workflow.AnswerEvent{Question: "Unknown Question", Answer: "Error: Empty query"})
		return nil
	}

	answer, err := w.retriever.Query(ctx, q)
	if err != nil {
		// One bad retrieval must not stall the aggregate; the error rides
		// along as the answer text instead.
		w.log.Warn("retrieval failed",
			zap.String("run_id", run.ID),
			zap.String("question", q),
			zap.Error(err))
		run.Emit(workflow.AnswerEvent{Question: q, Answer: fmt.Sprintf("Error querying LlamaCloud: %v", err)})
		return nil
	}

	run.Emit(workflow.AnswerEvent{Question: q, Answer: answer})
	return nil
}

func (w *Workflow) combineAnswers(ctx context.Context, run *workflow.Run, ev workflow.Event) error {
	batch := run.Collect(ev, w.cfg.SubQuestionCount)
	if batch == nil {
		return nil
	}

	pairs := make([]QA, 0, len(batch))
	for _, b := range batch {
		ans := b.(workflow.AnswerEvent)
		pairs = append(pairs, QA{Question: ans.Question, Answer: ans.Answer})
	}

	run.Emit(workflow.ResultEvent{Combined: Combine(pairs)})
	return nil
}
