package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"physics-lab/entities/simulation"
	"physics-lab/tools/sketch"
	"physics-lab/tools/stream"
)

// inbound message payloads
type (
	promptMsg struct {
		Text string `json:"text"`
	}
	actionMsg struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	scaleMsg struct {
		Factor float64 `json:"factor"`
	}
	pointMsg struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	viewportMsg struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
)

// handle answers one client message; it is the websocket command surface
func (l *Lab) handle(ctx context.Context, clientID string, m stream.Message) (any, error) {
	switch m.Type {
	case "prompt":
		var p promptMsg
		if err := unmarshal(m.Data, &p); err != nil {
			return nil, err
		}
		res, err := l.SendPrompt(ctx, p.Text)
		if err != nil {
			return nil, userError(err)
		}
		return map[string]any{"status": res.Status(), "result": res}, nil
	case "action":
		var a actionMsg
		if err := unmarshal(m.Data, &a); err != nil {
			return nil, err
		}
		return l.Execute(ctx, a.Name, a.Arguments), nil
	case "clear":
		l.ClearAll()
		return map[string]string{"status": "Cleared"}, nil
	case "reset":
		return map[string]int{"reset": l.Reset()}, nil
	case "playPause":
		return map[string]bool{"running": l.TogglePlayPause()}, nil
	case "timeScale":
		var s scaleMsg
		if err := unmarshal(m.Data, &s); err != nil {
			return nil, err
		}
		l.SetTimeScale(s.Factor)
		return map[string]float64{"timeScale": l.sim.TimeScale()}, nil
	case "draw":
		var d sketch.Drawing
		if err := unmarshal(m.Data, &d); err != nil {
			return nil, err
		}
		index, kept := l.pad.Finalize(d)
		return map[string]any{"index": index, "kept": kept}, nil
	case "connect":
		var c sketch.Connection
		if err := unmarshal(m.Data, &c); err != nil {
			return nil, err
		}
		return map[string]bool{"kept": l.pad.Connect(c)}, nil
	case "sketches":
		return map[string]any{"drawings": l.pad.Drawings(), "connections": l.pad.Connections()}, nil
	case "select":
		var p pointMsg
		if err := unmarshal(m.Data, &p); err != nil {
			return nil, err
		}
		report, found := l.sim.SelectAt(p.X, p.Y)
		return map[string]any{"found": found, "body": report}, nil
	case "viewport":
		var v viewportMsg
		if err := unmarshal(m.Data, &v); err != nil {
			return nil, err
		}
		l.sim.SetViewport(v.Width, v.Height)
		return map[string]string{"status": "ok"}, nil
	case "objects":
		return l.Objects(), nil
	}
	return nil, fmt.Errorf("unknown message type %q", m.Type)
}

// publish broadcasts v, logging a message that could not be encoded
func (l *Lab) publish(hub *stream.Hub, typ string, v any) {
	if err := hub.Broadcast(typ, v); err != nil {
		l.log.Warn("%s broadcast: %v", typ, err)
	}
}

// Serve streams world frames to websocket clients on addr until ctx ends
func (l *Lab) Serve(ctx context.Context, addr string) error {
	hub := stream.NewHub(l.handle, l.log)
	defer hub.Close()

	l.sim.OnBodySelected(func(report simulation.BodyReport, found bool) {
		if found {
			l.publish(hub, "selected", report)
		} else {
			l.publish(hub, "selected", nil)
		}
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() {
		l.log.Info("Serving websocket on %s/ws", addr)
		errc <- srv.ListenAndServe()
	}()
	go l.sim.Run(ctx, func(f simulation.Frame) {
		if hub.Clients() > 0 {
			l.publish(hub, "frame", f)
		}
	})

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed message: %w", err)
	}
	return nil
}

// userError keeps transport detail out of the status channel
func userError(err error) error {
	switch {
	case errors.Is(err, ErrBusy), errors.Is(err, ErrNothingToDo):
		return err
	}
	return fmt.Errorf("API error, try again")
}
