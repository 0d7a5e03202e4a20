package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BionicLimanov/sapusugi/internal/wire"
)

// reachabilityTimeout bounds the probe so the endpoint stays snappy when the
// Jupyter instance is down.
const reachabilityTimeout = 2500 * time.Millisecond

func (s *Server) jupyterInfo(c *gin.Context) {
	j := s.cfg.Jupyter
	iframeURL := j.IframeURL()

	reachable := false
	client := &http.Client{Timeout: reachabilityTimeout}
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, iframeURL, nil)
	if err == nil {
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			reachable = resp.StatusCode < 500
		}
	}

	c.JSON(http.StatusOK, wire.JupyterInfoResponse{
		IframeURL: iframeURL,
		Reachable: reachable,
		Host:      j.Host,
		Port:      j.Port,
		Path:      j.Path,
		TokenSet:  j.Token != "",
	})
}
