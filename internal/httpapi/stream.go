package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/metrics"
	"sanctum-sim/internal/observability"
)

// streamWriteTimeout bounds each websocket frame write.
const streamWriteTimeout = 5 * time.Second

// handleStreamRun upgrades to a websocket and runs the live parameters,
// sending one "tick" frame per appended state (the initial state included)
// and a final "done" frame.
// The seed query parameter overrides the live seed.
func (s *Server) handleStreamRun(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	observability.StreamOpened()
	defer observability.StreamClosed()

	live := s.scenarios.LiveState()
	params, activeID := live.Params, live.ActiveID
	seed := seedOr(r.URL.Query().Get("seed"), params.Seed)

	var writeErr error
	send := func(msg StreamMessage) {
		if writeErr != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if writeErr = conn.WriteJSON(msg); writeErr != nil {
			s.logger.Debug("stream client gone", "error", writeErr)
			return
		}
		observability.RecordStreamMessage()
	}

	result, err := s.agg.RunSingleObserved(
		metrics.WithScenarioID(r.Context(), activeID),
		seed,
		params,
		func(state domain.SimState) {
			send(StreamMessage{Type: StreamTick, State: &state})
		},
	)
	if err != nil {
		send(StreamMessage{Type: StreamError, Error: err.Error()})
		s.closeStream(conn, websocket.CloseUnsupportedData, err.Error())
		return
	}

	if !s.scenarios.Record(live.Generation, result, nil, metrics.Sensitivity(result)) {
		s.logger.Info("live parameters changed during stream, results not recorded", "scenario_id", activeID)
	}
	send(StreamMessage{Type: StreamDone, Result: result})
	if writeErr == nil {
		s.closeStream(conn, websocket.CloseNormalClosure, "")
	}
}

func (s *Server) closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteTimeout)); err != nil {
		s.logger.Debug("websocket close failed", "error", err)
	}
}
