// Package submit posts a finished signature with the delivery form and
// turns the reply into an outcome the signer is told about.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/juruen/sigpad/form"
	"github.com/juruen/sigpad/log"
	"github.com/juruen/sigpad/model"
	"github.com/juruen/sigpad/surface"
	"github.com/juruen/sigpad/ui"
)

const (
	DefaultSignatureField    = "signature_image"
	DefaultDeliveryTypeField = "delivery_type"
	DefaultDeliveryType      = "EPP"
	DefaultTimeout           = 30 * time.Second

	// RequestedWith marks the request as programmatic so the backend
	// answers with JSON instead of a page.
	RequestedWith = "XMLHttpRequest"

	maxResponse = 1 << 20
)

// Messages shown to the signer.
var (
	MsgSaved          = "Delivery saved and confirmed"
	MsgSaveFailed     = "Error saving delivery"
	MsgConnection     = "Could not connect to the server"
	MsgSessionExpired = "Session expired, sign in again"
)

type Config struct {
	Endpoint          string
	SignatureField    string
	DeliveryTypeField string
	DeliveryType      string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
}

func (c *Config) setDefaults() {
	if c.SignatureField == "" {
		c.SignatureField = DefaultSignatureField
	}
	if c.DeliveryTypeField == "" {
		c.DeliveryTypeField = DefaultDeliveryTypeField
	}
	if c.DeliveryType == "" {
		c.DeliveryType = DefaultDeliveryType
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

type Coordinator struct {
	cfg     Config
	client  *http.Client
	loading ui.Indicator
	trigger ui.Trigger
	notify  ui.Notifier
	schema  *jsonschema.Schema
	now     func() time.Time
}

type Option func(*Coordinator)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Coordinator) {
		c.client = client
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func New(cfg Config, loading ui.Indicator, trigger ui.Trigger, notify ui.Notifier, opts ...Option) (*Coordinator, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("submission endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, errors.Wrap(err, "invalid submission endpoint")
	}
	cfg.setDefaults()

	schema, err := responseSchema()
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:     cfg,
		loading: loading,
		trigger: trigger,
		notify:  notify,
		schema:  schema,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: cfg.Timeout}
	}
	return c, nil
}

// Submit sends the PNG raster with the form fields. The loading indicator
// is shown for the duration of the request and hidden on every path
// before the signer is notified.
func (c *Coordinator) Submit(ctx context.Context, raster []byte, fields url.Values) model.Outcome {
	outcome := func() model.Outcome {
		defer ui.Hold(c.loading)()
		return c.send(ctx, raster, fields)
	}()

	c.report(outcome)
	return outcome
}

func (c *Coordinator) report(o model.Outcome) {
	switch o.Kind {
	case model.OutcomeSuccess:
		c.trigger.Disable()
		c.notify.Notify(MsgSaved, ui.KindSuccess)
	case model.OutcomeFailure:
		c.notify.Notify(MsgSaveFailed+"\n"+o.Message, ui.KindError)
	default:
		c.notify.Notify(o.Message, ui.KindError)
	}
}

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Coordinator) send(ctx context.Context, raster []byte, fields url.Values) model.Outcome {
	id := uuid.NewString()

	if c.cfg.Token != "" {
		expired, err := tokenExpired(c.cfg.Token, c.now())
		if err != nil {
			log.Trace.Printf("submit %s: token is not a JWT, sending as is: %v", id, err)
		}
		if expired {
			log.Warning.Printf("submit %s: bearer token expired", id)
			return model.Failure(MsgSessionExpired)
		}
	}

	body, contentType, err := c.encode(raster, fields)
	if err != nil {
		log.Error.Printf("submit %s: %v", id, err)
		return model.TransportError(MsgConnection)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		log.Error.Printf("submit %s: failed to create request: %v", id, err)
		return model.TransportError(MsgConnection)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", RequestedWith)
	req.Header.Set("X-Request-Id", id)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	log.Info.Printf("submit %s: posting %d byte signature with %d fields", id, len(raster), len(fields))
	res, err := c.client.Do(req)
	if err != nil {
		log.Error.Printf("submit %s: failed to send request: %v", id, err)
		return model.TransportError(MsgConnection)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponse))
	if err != nil {
		log.Error.Printf("submit %s: failed to read response: %v", id, err)
		return model.TransportError(MsgConnection)
	}

	reply, err := c.decode(data)
	if err != nil {
		log.Error.Printf("submit %s: status %d, unusable response: %v", id, res.StatusCode, err)
		return model.TransportError(MsgConnection)
	}

	ok := res.StatusCode >= 200 && res.StatusCode < 300
	if ok && reply.Success {
		log.Info.Printf("submit %s: accepted", id)
		return model.Success()
	}

	msg := reply.Error
	if msg == "" {
		msg = MsgSaveFailed
	}
	log.Warning.Printf("submit %s: rejected with status %d: %s", id, res.StatusCode, msg)
	return model.Failure(msg)
}

// encode builds the multipart body: the form fields in key order, then
// the signature and the delivery type. Form fields named like one of the
// two fixed fields are left out.
func (c *Coordinator) encode(raster []byte, fields url.Values) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, k := range form.Keys(fields) {
		if k == c.cfg.SignatureField || k == c.cfg.DeliveryTypeField {
			continue
		}
		for _, v := range fields[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", errors.Wrapf(err, "can't write field %s", k)
			}
		}
	}
	if err := w.WriteField(c.cfg.SignatureField, surface.DataURI(raster)); err != nil {
		return nil, "", errors.Wrap(err, "can't write signature")
	}
	if err := w.WriteField(c.cfg.DeliveryTypeField, c.cfg.DeliveryType); err != nil {
		return nil, "", errors.Wrap(err, "can't write delivery type")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "can't close body")
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Coordinator) decode(data []byte) (response, error) {
	var reply response

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return reply, errors.Wrap(err, "not JSON")
	}
	if err := c.schema.Validate(doc); err != nil {
		return reply, errors.Wrap(err, "unexpected shape")
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return reply, errors.Wrap(err, "not JSON")
	}
	return reply, nil
}
