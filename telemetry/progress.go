package telemetry

// Update is one solve-progress snapshot, published to every connected
// viewer as it arrives. A solver pushes these onto a Reporter's channel
// from whatever goroutine is driving its sweeps or trials.
type Update struct {
	Algorithm   string  `json:"algorithm"`
	Domain      string  `json:"domain"`
	Iteration   int     `json:"iteration"`
	MaxResidual float64 `json:"maxResidual"`
	RootValue   float64 `json:"rootValue"`
	EnvelopeSz  int     `json:"envelopeSize"`
	Solved      bool    `json:"solved"`
}

// Reporter is a bounded, non-blocking sink a solver calls Report on after
// every sweep/trial. Report drops the update rather than blocking the
// solver if no one is currently draining the channel -- telemetry must
// never slow down the thing it's observing.
type Reporter struct {
	updates chan Update
}

// NewReporter returns a Reporter whose update stream is exposed for a
// Server to publish.
func NewReporter() *Reporter {
	return &Reporter{updates: make(chan Update, 64)}
}

// Report delivers an Update, dropping it silently if the buffer is full.
func (r *Reporter) Report(u Update) {
	select {
	case r.updates <- u:
	default:
	}
}

// Close signals no further updates will be sent, letting connected
// clients' publish loops exit cleanly.
func (r *Reporter) Close() {
	close(r.updates)
}

// Updates exposes the read side for Server.
func (r *Reporter) Updates() <-chan Update {
	return r.updates
}
