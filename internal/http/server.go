package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"moff.io/wallet-modal/internal/config"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/selection"
	"moff.io/wallet-modal/internal/session"
	"moff.io/wallet-modal/pkg/concurrent"
	"moff.io/wallet-modal/pkg/errors"
	"moff.io/wallet-modal/pkg/log"
	"moff.io/wallet-modal/pkg/log/middleware"
)

const maxStreams = 32

type Server struct {
	listen  string
	modal   *selection.Modal
	chooser *Chooser
	qr      *QRBoard
	streams concurrent.Limiter
	engine  *gin.Engine
	srv     *http.Server
	cancel  context.CancelFunc
}

// NewServer serves the modal. chooser and qr may be nil when the terminal
// is used instead.
func NewServer(listen string, modal *selection.Modal, chooser *Chooser, qr *QRBoard) *Server {
	s := &Server{
		listen:  listen,
		modal:   modal,
		chooser: chooser,
		qr:      qr,
		streams: concurrent.NewLimiter(maxStreams),
	}
	s.engine = s.router()
	return s
}

func (s *Server) router() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveredHTTPLog())
	router.SetHTMLTemplate(chooserTemplate)

	router.GET("/", s.page)
	router.GET("/chooser", s.page)
	router.GET("/connectors", s.connectors)
	router.GET("/connection", s.connection)
	router.GET("/connection/stream", s.stream)
	router.GET("/walletconnect/qr.png", s.qrImage)

	api := router.Group("/", middleware.TimeoutHTTP())
	api.POST("/chooser/pick/:index", s.pick)
	api.POST("/chooser/dismiss", s.dismiss)
	api.POST("/connect", s.connect)
	api.POST("/disconnect", s.disconnect)
	return router
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Apply fills the listen address from configuration when none was given.
func (s *Server) Apply(cfg *config.Configuration) {
	if s.listen == "" && cfg != nil {
		s.listen = cfg.HTTP.Listen
	}
	if s.listen == "" {
		s.listen = config.DefaultListen
	}
}

// Start serves until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.srv = &http.Server{
		Addr:              s.listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("shutdown http server: %v", err)
		}
	}()
	go func() {
		log.Infof("http server listening on %v", s.listen)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(errors.WrapAndReport(err, "serve http"))
		}
	}()
}

func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Server) page(ctx *gin.Context) {
	view := pageView{
		Presentation: s.modal.Presentation(),
		ConnectorID:  s.modal.Session().ConnectorID(),
	}
	if s.chooser != nil {
		if p, ds, ok := s.chooser.Pending(); ok {
			view.Pending = true
			view.Presentation = p
			view.Descriptors = providerViews(ds)
		}
	}
	if s.qr != nil && s.modal.Session().State() == session.Connecting {
		_, _, view.QR = s.qr.Current()
	}
	view.Connected, _ = s.modal.Session().Connection().IsConnected.Get()
	ctx.HTML(http.StatusOK, "chooser", view)
}

func (s *Server) connectors(ctx *gin.Context) {
	out := make([]gin.H, 0, len(s.modal.Providers()))
	for i, d := range s.modal.Providers() {
		out = append(out, gin.H{
			"index":       i,
			"id":          d.ID,
			"logo":        d.Display.Logo,
			"name":        d.Display.Name,
			"description": d.Display.Description,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 0, "connectors": out})
}

func (s *Server) connection(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"code":       0,
		"state":      s.modal.Session().State().String(),
		"connection": s.modal.Session().Snapshot(),
	})
}

func (s *Server) pick(ctx *gin.Context) {
	if s.chooser == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 4004, "msg": "chooser page disabled"})
		return
	}
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 4000, "msg": "index must be a number"})
		return
	}
	if err := s.chooser.Pick(index); err != nil {
		ctx.JSON(http.StatusConflict, gin.H{"code": 4009, "msg": err.Error()})
		return
	}
	s.answered(ctx)
}

func (s *Server) dismiss(ctx *gin.Context) {
	if s.chooser == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 4004, "msg": "chooser page disabled"})
		return
	}
	if err := s.chooser.Dismiss(); err != nil {
		ctx.JSON(http.StatusConflict, gin.H{"code": 4009, "msg": err.Error()})
		return
	}
	s.answered(ctx)
}

// answered sends browsers back to the page and api clients a json body.
func (s *Server) answered(ctx *gin.Context) {
	if ctx.ContentType() == "application/x-www-form-urlencoded" {
		ctx.Redirect(http.StatusSeeOther, "/")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

// connect starts a connect attempt in the background, its outcome shows on
// /connection and the stream.
func (s *Server) connect(ctx *gin.Context) {
	if st := s.modal.Session().State(); st != session.Idle {
		ctx.JSON(http.StatusConflict, gin.H{"code": 4009, "msg": "session is " + st.String()})
		return
	}
	go func() {
		if s.qr != nil {
			defer s.qr.Clear()
		}
		if _, err := s.modal.Connect(context.Background()); err != nil {
			var ce *connector.ConnectorError
			if errors.As(err, &ce) {
				log.Warnf("connect with %v failed: %v", ce.ID, ce.Err)
				return
			}
			log.Infof("connect ended: %v", err)
		}
	}()
	ctx.JSON(http.StatusAccepted, gin.H{"code": 0, "msg": "connecting"})
}

func (s *Server) disconnect(ctx *gin.Context) {
	s.modal.Disconnect()
	ctx.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

func (s *Server) qrImage(ctx *gin.Context) {
	if s.qr == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 4004, "msg": "no qr code"})
		return
	}
	_, png, ok := s.qr.Current()
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 4004, "msg": "no qr code"})
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}
