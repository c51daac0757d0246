package domain

// Step - роль внутри одной итерации PCV
type Step string

const (
	StepProposer Step = "proposer"
	StepCritic   Step = "critic"
	StepVerifier Step = "verifier"
)

// PCVIterations - фиксированное число итераций, без раннего выхода
const PCVIterations = 4

// PCVSteps - порядок шагов внутри итерации
var PCVSteps = []Step{StepProposer, StepCritic, StepVerifier}

func (s Step) String() string { return string(s) }

// PCVIteration holds the three outputs of one Proposer -> Critic -> Verifier pass.
type PCVIteration struct {
	Index        int    `json:"iteration"`
	Draft        string `json:"draft"`
	CriticReport string `json:"critic_report"`
	Verified     string `json:"verified"`
}

// Refinement is the full trace of one improve run.
type Refinement struct {
	Original   string         `json:"original"`
	Final      string         `json:"final"`
	Iterations []PCVIteration `json:"iterations"`
	Calls      int            `json:"calls"`
}

// ModelCalls - сколько вызовов модели стоит один прогон PCV
func ModelCalls() int {
	return PCVIterations * len(PCVSteps)
}
