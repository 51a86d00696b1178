// Package events defines the typed agent event contract.
//
// Every event carries exactly the payload listed below and nothing else:
//
//   - Started (start): the agent began listening. No payload.
//   - Stopped (stop): the agent was stopped and all of its activities were
//     torn down. No payload.
//   - UserTranscript (user): a finalized user transcript fragment.
//   - AssistantResponse (assistant): the generated reply text for a turn.
//   - SpeakingChanged (speaking): the synthesis speaking flag changed. Only
//     edges are reported, never repeats of the same value.
//   - Failed (error): the failure cause.
//
// Listeners are registered per [Kind] on a [Dispatcher] and are invoked
// synchronously in registration order for each emitted event. [On] offers a
// typed registration that derives the kind from the event type.
package events
