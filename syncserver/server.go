package syncserver

import (
	"fmt"
	"net/http"
	"os"

	"github.com/exlinc/golang-utils/jsonhttp"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/derekvan/canvas-markdown-tools/config"
)

var Log = config.Cfg().GetLogger()

func Serve() {
	Log.Info("Starting sync HTTP server")
	err := http.ListenAndServe(
		fmt.Sprintf("%s:%s", config.Cfg().SyncServerAddr, config.Cfg().SyncServerPort),
		handlers.CombinedLoggingHandler(os.Stdout, createRouter()))
	Log.Error(err)
	Log.Info("Stopped sync HTTP server")
}

func createRouter() http.Handler {
	router := mux.NewRouter()
	router.StrictSlash(true)

	// V1 Routes
	v1Router := router.PathPrefix("/v1").Subrouter()
	v1Router.HandleFunc("/", index).Methods("GET")
	v1Router.HandleFunc("/sync", syncCourse).Methods("POST")
	v1Router.HandleFunc("/github/repo-push-event", repoPushEventWebhook).Methods("POST")

	return Use(router.ServeHTTP, RecoverAndLog)
}

func index(w http.ResponseWriter, r *http.Request) {
	jsonhttp.JSONSuccess(w, nil, "Server healthy")
}

// Use allows us to stack middleware to process the request
func Use(handler http.HandlerFunc, mid ...func(http.Handler) http.HandlerFunc) http.HandlerFunc {
	for _, m := range mid {
		handler = m(handler)
	}
	return handler
}

func RecoverAndLog(handler http.Handler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			r := recover()
			if r != nil {
				jsonhttp.JSONInternalError(w, "An internal server error occurred", "Please try again in a few seconds")
				Log.Error("Panic occurred in HTTP handler:", r)
			}
		}()
		handler.ServeHTTP(w, r)
	})
}
