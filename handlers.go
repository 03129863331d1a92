package main

import (
	"html/template"
	"net/http"

	"github.com/gorilla/websocket"
)

type wsHandler struct {
	h        *hub
	upgrader *websocket.Upgrader
}

func newWsHandler(h *hub, origins *originPolicy) wsHandler {
	return wsHandler{
		h: h,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     origins.check,
		},
	}
}

func (wsh wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Error: websocket upgrade requires GET.", http.StatusMethodNotAllowed)
		return
	}
	if wsh.h.isClosing() {
		http.Error(w, "Error: hub is shutting down.", http.StatusServiceUnavailable)
		return
	}
	// Upgrade writes its own error response.
	ws, err := wsh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsh.h.log.Debug("handshake failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := newConnection(websocketInteractor{ws: ws}, wsh.h)
	c.run()
}

type getHandler struct {
	path string
}

func (gh getHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := webTemplate.Execute(w, templateArgs{Path: gh.path}); err != nil {
		http.Error(w, "Error: template failed.", http.StatusInternalServerError)
	}
}

type metricsHandler struct {
	m *metrics
}

func (mh metricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	mh.m.writeOnce(w)
}

type templateArgs struct {
	Path string
}

var webTemplate = template.Must(template.New("webTemplate").Parse(`<!DOCTYPE html>
<html>
<head>
<title>imagehub {{.Path}}</title>
<style type="text/css">
body { font-family: sans-serif; margin: 1em; }
#log { border: 1px solid #ccc; height: 20em; overflow: auto; padding: 0.5em; }
</style>
</head>
<body>
<h3>Websocket client for {{.Path}}</h3>
<div id="log"></div>
<form id="form">
    <input type="text" id="image" placeholder="image_id" size="12"/>
    <input type="text" id="data" placeholder="data" size="48"/>
    <input type="submit" value="Send edit"/>
</form>
<script type="text/javascript">
(function() {
    var log = document.getElementById("log");
    function appendLog(text) {
        var d = document.createElement("div");
        d.textContent = text;
        log.appendChild(d);
        log.scrollTop = log.scrollHeight;
    }
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var conn = new WebSocket(scheme + location.host + {{.Path}});
    conn.binaryType = "arraybuffer";
    conn.onclose = function() { appendLog("Connection closed."); };
    conn.onmessage = function(evt) {
        if (typeof evt.data === "string") {
            appendLog(evt.data);
        } else {
            appendLog("binary frame, " + evt.data.byteLength + " bytes");
        }
    };
    document.getElementById("form").onsubmit = function() {
        conn.send(JSON.stringify({
            type: "edit",
            image_id: document.getElementById("image").value,
            data: document.getElementById("data").value
        }));
        return false;
    };
})();
</script>
</body>
</html>
`))
