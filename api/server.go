package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/matt-g-everett/mdfplay/playback"
)

// Playback is what the Api reports on and controls.
type Playback interface {
	Status() playback.Status
	Cancel()
}

// Api serves playback status over HTTP.
type Api struct {
	playback Playback
	mux      *http.ServeMux
}

// NewApi creates an Api for a playback.
func NewApi(p Playback) *Api {
	a := new(Api)
	a.playback = p
	a.mux = http.NewServeMux()
	a.mux.HandleFunc("/status", a.handleStatus)
	a.mux.HandleFunc("/cancel", a.handleCancel)
	return a
}

// ServeHTTP implements http.Handler.
func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *Api) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.playback.Status()); err != nil {
		log.Printf("Writing status: %v", err)
	}
}

func (a *Api) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	a.playback.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// Serve listens on addr until ctx is done.
func (a *Api) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Listening on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
