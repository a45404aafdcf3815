package workflow

// EventType identifies one of the closed set of message variants routed by
// the engine.
type EventType string

const (
	EventStart       EventType = "start"
	EventSubQuestion EventType = "sub_question"
	EventAnswer      EventType = "answer"
	EventResult      EventType = "result"
)

// Event is the sealed message interface. The four variants below are the
// only implementations; the unexported method keeps the set closed.
type Event interface {
	Type() EventType
	sealed()
}

// StartEvent opens a run with the caller's topic.
type StartEvent struct {
	Topic string
}

func (StartEvent) Type() EventType { return EventStart }
func (StartEvent) sealed()         {}

// SubQuestionEvent carries one generated sub-question to the retrieval pool.
type SubQuestionEvent struct {
	Question string
}

func (SubQuestionEvent) Type() EventType { return EventSubQuestion }
func (SubQuestionEvent) sealed()         {}

// AnswerEvent pairs a sub-question with its retrieved (or placeholder) answer.
type AnswerEvent struct {
	Question string
	Answer   string
}

func (AnswerEvent) Type() EventType { return EventAnswer }
func (AnswerEvent) sealed()         {}

// ResultEvent is terminal: it resolves the run with the combined text.
type ResultEvent struct {
	Combined string
}

func (ResultEvent) Type() EventType { return EventResult }
func (ResultEvent) sealed()         {}
