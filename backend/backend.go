// Package backend is a reference implementation of the delivery
// confirmation endpoint. It accepts the multipart post of a signing
// station, checks the signature image and keeps the accepted deliveries
// in memory.
package backend

import (
	"bytes"
	"image/png"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/juruen/sigpad/log"
	"github.com/juruen/sigpad/surface"
)

const (
	DefaultPath              = "/deliveries/:id/confirm/"
	DefaultSignatureField    = "signature_image"
	DefaultDeliveryTypeField = "delivery_type"
	DefaultDeliveryType      = "EPP"
	DefaultRedirect          = "/deliveries/"
)

type Config struct {
	Path              string
	SignatureField    string
	DeliveryTypeField string
	DeliveryType      string
	// Redirect is where plain form posts are sent after a success.
	Redirect string
	// Token, when set, must be presented as a bearer token.
	Token string
	// Check runs on every well formed delivery; an error rejects it
	// with the error text.
	Check func(Delivery) error
}

func (c *Config) setDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.SignatureField == "" {
		c.SignatureField = DefaultSignatureField
	}
	if c.DeliveryTypeField == "" {
		c.DeliveryTypeField = DefaultDeliveryTypeField
	}
	if c.DeliveryType == "" {
		c.DeliveryType = DefaultDeliveryType
	}
	if c.Redirect == "" {
		c.Redirect = DefaultRedirect
	}
}

// Delivery is an accepted confirmation.
type Delivery struct {
	ID        string     `json:"id"`
	Receipt   string     `json:"receipt"`
	RequestID string     `json:"request_id,omitempty"`
	Fields    url.Values `json:"fields"`
	Signature []byte     `json:"-"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Received  time.Time  `json:"received"`
}

type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Receipt string `json:"receipt,omitempty"`
}

type Server struct {
	Echo *echo.Echo

	cfg Config
	now func() time.Time

	mu         sync.Mutex
	deliveries []Delivery
}

func New(cfg Config) *Server {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("8M"))

	s := &Server{
		Echo: e,
		cfg:  cfg,
		now:  time.Now,
	}
	e.POST(cfg.Path, s.postConfirm)
	e.GET(DefaultRedirect, s.getDeliveries)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Echo.ServeHTTP(w, r)
}

// Deliveries returns the accepted deliveries in arrival order.
func (s *Server) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}

func wantsJSON(c echo.Context) bool {
	return c.Request().Header.Get("X-Requested-With") != ""
}

// reply answers programmatic requests with JSON and plain form posts
// with a redirect or a text error.
func (s *Server) reply(c echo.Context, status int, res Response) error {
	if wantsJSON(c) {
		return c.JSON(status, res)
	}
	if res.Success {
		return c.Redirect(http.StatusSeeOther, s.cfg.Redirect)
	}
	return c.String(status, res.Error)
}

func (s *Server) authorized(c echo.Context) bool {
	if s.cfg.Token == "" {
		return true
	}
	return c.Request().Header.Get(echo.HeaderAuthorization) == "Bearer "+s.cfg.Token
}

func (s *Server) postConfirm(c echo.Context) error {
	reqID := c.Response().Header().Get(echo.HeaderXRequestID)

	if !s.authorized(c) {
		log.Warning.Printf("backend %s: unauthorized", reqID)
		return s.reply(c, http.StatusUnauthorized, Response{Error: "authentication required"})
	}

	params, err := c.FormParams()
	if err != nil {
		log.Warning.Printf("backend %s: bad form: %v", reqID, err)
		return s.reply(c, http.StatusBadRequest, Response{Error: "malformed form"})
	}

	d, err := s.parse(params)
	if err != nil {
		log.Warning.Printf("backend %s: rejected: %v", reqID, err)
		return s.reply(c, http.StatusBadRequest, Response{Error: err.Error()})
	}
	d.ID = c.Param("id")
	d.RequestID = reqID

	if s.cfg.Check != nil {
		if err := s.cfg.Check(d); err != nil {
			log.Warning.Printf("backend %s: delivery %s rejected: %v", reqID, d.ID, err)
			return s.reply(c, http.StatusOK, Response{Error: err.Error()})
		}
	}

	d.Receipt = uuid.NewString()
	d.Received = s.now()
	s.mu.Lock()
	s.deliveries = append(s.deliveries, d)
	s.mu.Unlock()

	log.Info.Printf("backend %s: delivery %s confirmed, signature %dx%d", reqID, d.ID, d.Width, d.Height)
	return s.reply(c, http.StatusOK, Response{Success: true, Receipt: d.Receipt})
}

func (s *Server) parse(params url.Values) (Delivery, error) {
	var d Delivery

	if got := params.Get(s.cfg.DeliveryTypeField); got != s.cfg.DeliveryType {
		return d, errors.Errorf("invalid delivery type %q", got)
	}

	uri := params.Get(s.cfg.SignatureField)
	if uri == "" {
		return d, errors.New("signature is required")
	}
	raw, err := surface.DecodeDataURI(uri)
	if err != nil {
		return d, errors.Wrap(err, "invalid signature")
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return d, errors.Wrap(err, "invalid signature")
	}

	fields := url.Values{}
	for k, v := range params {
		if k == s.cfg.SignatureField || k == s.cfg.DeliveryTypeField {
			continue
		}
		fields[k] = v
	}

	d.Fields = fields
	d.Signature = raw
	d.Width, d.Height = cfg.Width, cfg.Height
	return d, nil
}

func (s *Server) getDeliveries(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Deliveries())
}
