package reactor

import "github.com/relaycore/reactor/pkg/engine"

// Observer re-exports engine.Observer.
type Observer = engine.Observer

// SubscriberFunc re-exports the subscriber callback contract.
type SubscriberFunc = engine.SubscriberFunc

// CreateObserver constructs an Observer whose onChange fires when any
// (handle,key) pair read during a Run call changes. onTrack, if
// non-nil, is called once per newly tracked pair (§4.5/§6's
// "createObserver(onChange, onTrack?)").
func CreateObserver(onChange func(StateChange), onTrack func(handleID, key string)) *Observer {
	return engine.CreateObserver(onChange, onTrack)
}

// Subscribe registers fn as an external subscriber on h. emitInit
// defaults to true: fn is invoked once synchronously with a synthetic
// {type:init} event before returning (§4.2's "derive(handle, fn,
// emitInit?)"). Derive is its spec-named alias.
func Subscribe(h Handle, fn SubscriberFunc, emitInit ...bool) (unsubscribe func()) {
	init := true
	if len(emitInit) > 0 {
		init = emitInit[0]
	}
	return engine.Subscribe(h.Meta(), fn, false, init)
}

// Derive is the spec-named alias for Subscribe.
var Derive = Subscribe
