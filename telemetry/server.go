package telemetry

import (
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
)

// Server serves a single live page showing one Reporter's Update stream,
// the same "single page, single client" scope as the original
// server: good enough to watch one solve run locally, not a multi-tenant
// dashboard.
type Server struct {
	addr     string
	reporter *Reporter
	last     Update
}

// NewServer builds a Server that will publish reporter's updates once
// Serve is called.
func NewServer(addr string, reporter *Reporter) *Server {
	return &Server{addr: addr, reporter: reporter}
}

// Serve blocks, serving the index page at "/", the update stream over a
// websocket at "/ws", and a liveness probe at "/healthz".
func (s *Server) Serve() error {
	router := s.routes()
	return http.ListenAndServe(s.addr, router)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.serveWebsocket)
	router.HandleFunc("/healthz", s.serveHealthz).Methods(http.MethodGet)
	return router
}

func (s *Server) serveHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := indexTemplate.Execute(w, s.last); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := newClient(s.reporter.Updates(), w, r)
	if err != nil {
		return
	}
	defer cli.ws.close()
	_ = cli.sync()
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>mdp-lib solve monitor</title></head>
<body>
<h1 id="algorithm">{{ .Algorithm }}</h1>
<table>
<tr><td>domain</td><td id="domain">{{ .Domain }}</td></tr>
<tr><td>iteration</td><td id="iteration">{{ .Iteration }}</td></tr>
<tr><td>max residual</td><td id="maxResidual">{{ .MaxResidual }}</td></tr>
<tr><td>root value</td><td id="rootValue">{{ .RootValue }}</td></tr>
<tr><td>envelope size</td><td id="envelopeSize">{{ .EnvelopeSz }}</td></tr>
<tr><td>solved</td><td id="solved">{{ .Solved }}</td></tr>
</table>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
	const u = JSON.parse(ev.data);
	for (const [id, val] of Object.entries(u)) {
		const ele = document.getElementById(id);
		if (ele) ele.textContent = val;
	}
};
</script>
</body>
</html>`))
