package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/llms"
	"github.com/koscakluka/ema-live/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrLanguageModelNotConfigured = errors.New("language model not configured")
	ErrRecognizerNotConfigured    = errors.New("speech recognizer not configured")
	ErrSynthesizerNotConfigured   = errors.New("speech synthesizer not configured")
	ErrAgentStopped               = errors.New("agent stopped")
	ErrAgentErrored               = errors.New("agent failed and has to be recreated")
)

var _ events.Subscriber = (*Agent)(nil)

// Agent runs a spoken conversation: it collects final recognition fragments
// into turns, prompts the language model once the user falls silent and
// speaks the replies, cancelling them when the user talks over them.
//
// All state changes happen on a single event loop goroutine. Listeners are
// called on that goroutine, so they must not block and must not call Start
// or Stop synchronously.
type Agent struct {
	synthesizer   texttospeech.Synthesizer
	languageModel llms.LanguageModel
	session       llms.Session

	instructions         string
	voice                string
	interimInterruptions bool
	logger               *slog.Logger

	dispatcher *events.Dispatcher
	state      atomic.Int32

	inbox    chan func()
	done     chan struct{}
	loopOnce sync.Once

	// Everything below is owned by the event loop.
	transcript       transcriptAccumulator
	turnTimer        turnTimer
	speakingMonitor  speakingMonitor
	recognition      recognitionSupervisor
	promptInFlight   bool
	dispatchDeferred bool
	runCtx           context.Context
	cancelRun        context.CancelFunc
	stopOnCancel     func() bool
}

// NewAgent configures an agent and creates its language model session with
// the configured instructions.
func NewAgent(ctx context.Context, opts ...AgentOption) (*Agent, error) {
	a := &Agent{
		instructions:    DefaultInstructions,
		logger:          defaultLogger,
		dispatcher:      events.NewDispatcher(),
		inbox:           make(chan func(), inboxCapacity),
		done:            make(chan struct{}),
		turnTimer:       turnTimer{threshold: DefaultSilenceThreshold},
		speakingMonitor: speakingMonitor{interval: DefaultSpeakingPollInterval},
		recognition:     recognitionSupervisor{language: DefaultLanguage},
		runCtx:          context.Background(),
		cancelRun:       func() {},
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.languageModel == nil {
		return nil, ErrLanguageModelNotConfigured
	}

	session, err := a.languageModel.NewSession(ctx, llms.WithInstructions(a.instructions))
	if err != nil {
		return nil, fmt.Errorf("failed to create language model session: %w", err)
	}
	a.session = session

	return a, nil
}

func (a *Agent) State() State {
	return State(a.state.Load())
}

// Subscribe registers listener for events of kind. See [events.On] for the
// typed variant.
func (a *Agent) Subscribe(kind events.Kind, listener events.Listener) {
	a.dispatcher.Subscribe(kind, listener)
}

// Start begins recognition and the speaking poll. Calling it on a running
// agent does nothing. Cancelling ctx stops the agent.
//
// A failure to start recognition is fatal: the agent is torn down, an error
// event is emitted and the failure is returned.
func (a *Agent) Start(ctx context.Context) error {
	return a.call(func() error { return a.start(ctx) })
}

// Stop tears the agent down. Stopping a stopped or failed agent does
// nothing. A failure to stop recognition is both emitted and returned.
func (a *Agent) Stop() error {
	err := a.call(a.stop)
	if errors.Is(err, ErrAgentStopped) || errors.Is(err, ErrAgentErrored) {
		return nil
	}
	return err
}

// Speak speaks text through the synthesizer with the configured voice,
// outside of any turn.
func (a *Agent) Speak(ctx context.Context, text string) error {
	if a.synthesizer == nil {
		return ErrSynthesizerNotConfigured
	}

	return a.call(func() error {
		if err := a.terminalErr(); err != nil {
			return err
		}
		return a.speak(ctx, text)
	})
}

func (a *Agent) start(ctx context.Context) error {
	switch state := a.State(); {
	case state.terminal():
		return a.terminalErr()
	case state != StateIdle:
		return nil
	}

	a.runCtx, a.cancelRun = context.WithCancel(context.WithoutCancel(ctx))

	var err error
	if a.recognition.recognizer == nil {
		err = ErrRecognizerNotConfigured
	} else if err = a.recognition.start(a.runCtx, a.schedule, a.recognitionCallbacks()); err != nil {
		err = fmt.Errorf("failed to start speech recognition: %w", err)
	}
	if err != nil {
		a.logger.Error("error starting agent", "error", err)
		a.fail(err)
		return err
	}

	if a.synthesizer != nil {
		a.speakingMonitor.start(func() { a.submit(a.pollSpeaking) })
	}
	a.stopOnCancel = context.AfterFunc(ctx, func() { _ = a.Stop() })

	a.setState(StateListening)
	a.emit(events.NewStarted())
	return nil
}

func (a *Agent) stop() error {
	if a.State().terminal() {
		return nil
	}

	if err := a.teardown(); err != nil {
		err = fmt.Errorf("failed to stop speech recognition: %w", err)
		a.logger.Error("error stopping speech recognition", "error", err)
		a.setState(StateErrored)
		a.emit(events.NewFailed(err))
		return err
	}

	a.setState(StateStopped)
	a.emit(events.NewStopped())
	return nil
}

// fail tears the agent down after an unrecoverable failure.
func (a *Agent) fail(cause error) {
	if err := a.teardown(); err != nil {
		a.logger.Error("error stopping speech recognition", "error", err)
	}
	a.setState(StateErrored)
	a.emit(events.NewFailed(cause))
}

// teardown cancels every scheduled activity and releases the engines. It
// returns the error of stopping recognition, if any.
func (a *Agent) teardown() error {
	a.logger.Info("stopping agent")

	a.turnTimer.cancel()
	a.speakingMonitor.stop()
	a.transcript.drain()
	a.promptInFlight = false
	a.dispatchDeferred = false

	if a.synthesizer != nil {
		a.cancelSpeech()
	}
	err := a.recognition.stop()

	if a.stopOnCancel != nil {
		a.stopOnCancel()
		a.stopOnCancel = nil
	}
	a.cancelRun()

	return err
}

func (a *Agent) recognitionCallbacks() recognitionCallbacks {
	return recognitionCallbacks{
		onFinal:   a.handleFinal,
		onInterim: a.handleInterim,
		onError:   a.handleRecognitionError,
		onEnd:     a.handleRecognitionEnd,
	}
}

func (a *Agent) handleFinal(text string) {
	if !a.State().active() {
		return
	}

	// Speech has to be cut before the new turn becomes visible.
	if a.synthesisActive() {
		a.interrupt()
	}

	a.logger.Info("stt detected", "text", truncate(text, logTextLimit))
	a.transcript.append(text)
	a.turnTimer.arm(a.turnTimerFired)
	// The new timer supersedes a fire deferred behind the running prompt.
	a.dispatchDeferred = false
	a.setState(StateAwaitingTurn)

	// The timer fires through the loop, so it cannot overtake this event.
	a.emit(events.NewUserTranscript(text))
}

func (a *Agent) handleInterim() {
	if !a.interimInterruptions || !a.State().active() {
		return
	}
	if a.synthesisActive() {
		a.interrupt()
	}
}

func (a *Agent) handleRecognitionError(err error) {
	if !a.State().active() {
		return
	}

	a.logger.Error("speech recognition error", "error", err)
	a.fail(err)
}

// handleRecognitionEnd restarts a stream that ended without being stopped.
func (a *Agent) handleRecognitionEnd() {
	a.logger.Info("speech recognition ended")
	if !a.State().active() {
		return
	}

	if err := a.recognition.start(a.runCtx, a.schedule, a.recognitionCallbacks()); err != nil {
		err = fmt.Errorf("failed to restart speech recognition: %w", err)
		a.logger.Error("speech recognition error", "error", err)
		a.fail(err)
	}
}

func (a *Agent) turnTimerFired(generation uint64) {
	a.submit(func() {
		if !a.State().active() || !a.turnTimer.claim(generation) {
			return
		}
		a.dispatchTurn()
	})
}

// dispatchTurn hands the accumulated transcript to the language model. Only
// one prompt is in flight at a time; a turn ready in the meantime is
// dispatched once the running prompt resolves.
func (a *Agent) dispatchTurn() {
	if a.promptInFlight {
		a.dispatchDeferred = true
		return
	}

	if a.transcript.empty() {
		a.settle()
		return
	}
	turn := a.transcript.drain()

	a.promptInFlight = true
	a.setState(StateResponding)
	go a.processTurn(a.runCtx, turn)
}

func (a *Agent) processTurn(ctx context.Context, turn string) {
	ctx, span := tracer.Start(ctx, "process turn", trace.WithAttributes(
		attribute.String("turn.id", uuid.NewString()),
	))
	defer span.End()

	response, err := a.session.Prompt(ctx, turn)
	if err != nil {
		err = fmt.Errorf("failed to prompt language model: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	a.submit(func() { a.handleResponse(ctx, response, err) })
}

func (a *Agent) handleResponse(ctx context.Context, response string, err error) {
	a.promptInFlight = false
	if !a.State().active() {
		return
	}

	if err != nil {
		a.logger.Error("llm prompt failed", "error", err)
		a.emit(events.NewFailed(err))
	} else {
		a.logger.Info("llm response", "text", response)
		a.emit(events.NewAssistantResponse(response))

		if a.synthesizer != nil {
			if err := a.speak(ctx, response); err != nil {
				err = fmt.Errorf("failed to speak response: %w", err)
				a.logger.Error("tts speak failed", "error", err)
				a.emit(events.NewFailed(err))
			}
		}
	}

	if a.dispatchDeferred {
		a.dispatchDeferred = false
		a.dispatchTurn()
		return
	}
	a.settle()
}

func (a *Agent) pollSpeaking() {
	if !a.State().active() || !a.speakingMonitor.running() {
		return
	}

	speaking := a.synthesizer.Speaking()
	if a.speakingMonitor.observe(speaking) {
		a.logger.Info("tts speaking", "speaking", speaking)
		a.emit(events.NewSpeakingChanged(speaking))
	}

	if state := a.State(); state == StateListening || state == StateResponding {
		a.settle()
	}
}

// settle derives the active state from what is still pending.
func (a *Agent) settle() {
	switch {
	case a.promptInFlight:
		a.setState(StateResponding)
	case a.turnTimer.armed():
		a.setState(StateAwaitingTurn)
	case a.synthesisActive():
		a.setState(StateResponding)
	default:
		a.setState(StateListening)
	}
}

func (a *Agent) setState(state State) {
	previous := State(a.state.Swap(int32(state)))
	if previous != state {
		a.logger.Debug("agent state changed", "from", previous, "to", state)
	}
}

func (a *Agent) emit(event events.Event) {
	a.dispatcher.Emit(event)
}

func (a *Agent) terminalErr() error {
	switch a.State() {
	case StateStopped:
		return ErrAgentStopped
	case StateErrored:
		return ErrAgentErrored
	default:
		return nil
	}
}
