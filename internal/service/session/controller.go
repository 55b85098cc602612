// Package session hosts the dictation session controller: the single place
// where recognition events, edit commands, and persistence outcomes meet.
// Failures never propagate past the controller; they become state plus a
// status message for the operator.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"speech-dictation-service/internal/events"
	"speech-dictation-service/internal/models"
	"speech-dictation-service/internal/observability/logging"
	"speech-dictation-service/internal/service/persist"
	"speech-dictation-service/internal/service/recognition"
	"speech-dictation-service/internal/service/results"
	"speech-dictation-service/internal/service/synthesis"
)

// Operator-facing status messages, mirroring the dictation UI's toasts.
const (
	statusRemoteReady    = "เชื่อมต่อฐานข้อมูลสำเร็จ"
	statusRemoteFailed   = "ไม่สามารถเชื่อมต่อฐานข้อมูลได้ - จะใช้งานแบบออฟไลน์"
	statusRemoteNotReady = "ฐานข้อมูลไม่พร้อมใช้งาน"
	statusSupported      = "ระบบรู้จำเสียงพร้อมใช้งาน"
	statusUnsupported    = "ไม่รองรับการรู้จำเสียงพูด"
	statusSavedNew       = "บันทึกข้อมูลใหม่สำเร็จ"
	statusUpdated        = "อัพเดทข้อมูลสำเร็จ"
	statusDeleteFailed   = "ไม่สามารถลบข้อมูลได้"
	statusCleared        = "ล้างผลลัพธ์แล้ว"
	errPrefixSave        = "เกิดข้อผิดพลาดในการบันทึก: "
	errPrefixStart       = "ไม่สามารถเริ่มการรับเสียงได้: "
	errPrefixRecognition = "เกิดข้อผิดพลาด: "
	checkUtterance       = "สวัสดีครับ ระบบเสียงทำงานปกติ"
)

// examplePhrases are the merchant dictation phrases surfaced to the operator
// for microphone testing.
var examplePhrases = []string{
	"ขายน้ำ 20 บาท",
	"ซื้อข้าว 50 บาท",
	"รายได้ 100 บาท",
	"จ่ายค่าไฟ 200 บาท",
	"ขายก๋วยเตี๋ยว 35 บาท",
	"ซื้อน้ำยาล้างจาน 25 บาท",
	"ค่าโทรศัพท์ 299 บาท",
	"ค่าน้ำมัน 500 บาท",
}

// Snapshot is the full observable state of the dictation session.
type Snapshot struct {
	SessionID   string          `json:"sessionId"`
	Supported   bool            `json:"supported"`
	Listening   bool            `json:"listening"`
	InterimText string          `json:"interimText"`
	Records     []models.Record `json:"records"`
	SavingIDs   []string        `json:"savingIds"`
	RemoteReady bool            `json:"remoteReady"`
	Status      string          `json:"status"`
}

// Observer receives a snapshot after every state change.
type Observer func(Snapshot)

// Options carries the controller's injected capabilities. A nil Engine means
// the host has no speech capability; every other field is required.
type Options struct {
	Engine      recognition.Engine
	Synthesizer synthesis.Synthesizer
	Syncer      *persist.Synchronizer
	Results     *results.Store
	Publisher   *events.Publisher
	Locale      string
	SpeakRate   float64
}

// Controller drives one dictation session.
type Controller struct {
	id        string
	engine    recognition.Engine
	session   *recognition.Session
	synth     synthesis.Synthesizer
	syncer    *persist.Synchronizer
	results   *results.Store
	publisher *events.Publisher
	locale    string
	speakRate float64
	log       zerolog.Logger

	mu        sync.Mutex
	supported bool
	status    string
	observer  Observer
}

// New assembles a controller around the injected capabilities.
func New(opts Options) *Controller {
	c := &Controller{
		id:        uuid.NewString(),
		engine:    opts.Engine,
		synth:     opts.Synthesizer,
		syncer:    opts.Syncer,
		results:   opts.Results,
		publisher: opts.Publisher,
		locale:    opts.Locale,
		speakRate: opts.SpeakRate,
		log:       logging.WithComponent("session"),
	}
	if opts.Engine != nil {
		c.session = recognition.NewSession(opts.Engine, c.handleRecognition)
	}
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// Examples returns the phrase list for microphone testing.
func (c *Controller) Examples() []string {
	return append([]string(nil), examplePhrases...)
}

// SetObserver registers the callback notified after every state change.
func (c *Controller) SetObserver(fn Observer) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

// Startup probes the speech capability and brings up the remote store. The
// two run concurrently and independently; a store outage never blocks the
// capability verdict, and vice versa.
func (c *Controller) Startup(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		supported := c.session != nil
		c.mu.Lock()
		c.supported = supported
		if supported {
			c.status = statusSupported
		} else {
			c.status = statusUnsupported
		}
		c.mu.Unlock()
		c.log.Info().Bool("supported", supported).Msg("speech capability probed")
		c.notify()
	}()

	go func() {
		defer wg.Done()
		if err := c.syncer.Connect(ctx); err != nil {
			c.setStatus(statusRemoteFailed)
			return
		}
		c.setStatus(statusRemoteReady)
	}()

	wg.Wait()
}

// ToggleListening starts recognition when idle and stops it when listening,
// matching a single microphone button.
func (c *Controller) ToggleListening(ctx context.Context) {
	if c.session == nil {
		c.setStatus(statusUnsupported)
		return
	}
	if c.session.Active() {
		if err := c.session.Stop(); err != nil {
			c.log.Warn().Err(err).Msg("stop recognition")
		}
		c.notify()
		return
	}
	if err := c.session.Start(ctx); err != nil {
		c.setStatus(errPrefixStart + err.Error())
	}
}

// PushAudio forwards caller-supplied audio to the engine, for engines that
// do not capture their own.
func (c *Controller) PushAudio(ctx context.Context, chunk []byte) error {
	w, ok := c.engine.(recognition.AudioWriter)
	if !ok {
		return fmt.Errorf("engine does not accept caller audio")
	}
	return w.WriteAudio(ctx, chunk)
}

// BeginEdit opens the record for editing.
func (c *Controller) BeginEdit(id string) {
	if err := c.results.BeginEdit(id); err != nil {
		c.setStatus(err.Error())
		return
	}
	c.notify()
}

// UpdateDraft replaces the record's edit draft.
func (c *Controller) UpdateDraft(id, text string) {
	if err := c.results.UpdateDraft(id, text); err != nil {
		c.setStatus(err.Error())
		return
	}
	c.notify()
}

// CommitEdit applies the draft to the record.
func (c *Controller) CommitEdit(id string) {
	if _, err := c.results.CommitEdit(id); err != nil {
		c.setStatus(err.Error())
		return
	}
	c.notify()
}

// CancelEdit abandons the draft.
func (c *Controller) CancelEdit(id string) {
	if err := c.results.CancelEdit(id); err != nil {
		c.setStatus(err.Error())
		return
	}
	c.notify()
}

// SaveRecord persists the record in the background. Progress is visible
// through the snapshot's saving set; the outcome arrives as a status
// message and a record event.
func (c *Controller) SaveRecord(id string) {
	if !c.syncer.Ready() {
		c.setStatus(statusRemoteNotReady)
		return
	}
	rec, err := c.results.Get(id)
	if err != nil {
		c.setStatus(err.Error())
		return
	}
	wasSaved := rec.Persistence == models.PersistenceSaved && rec.RemoteID != ""

	go func() {
		// Detached from the request that triggered it.
		ctx := context.Background()
		if err := c.syncer.Save(ctx, id); err != nil {
			c.setStatus(errPrefixSave + err.Error())
			c.publishRecordEvent(ctx, id, "save_failed", err.Error())
			return
		}
		if wasSaved {
			c.setStatus(statusUpdated)
		} else {
			c.setStatus(statusSavedNew)
		}
		c.publishRecordEvent(ctx, id, "saved", "")
	}()
	c.notify()
}

// DeleteRecord removes the record, remote copy included when one exists.
func (c *Controller) DeleteRecord(id string) {
	go func() {
		ctx := context.Background()
		if err := c.syncer.Delete(ctx, id); err != nil {
			c.log.Error().Err(err).Str("recordId", id).Msg("delete record")
			c.setStatus(statusDeleteFailed)
			return
		}
		c.publishRecordEvent(ctx, id, "deleted", "")
		c.notify()
	}()
}

// ClearAll drops every local record. Remote documents are left in place.
func (c *Controller) ClearAll(ctx context.Context) {
	n := c.results.ClearAll()
	c.log.Info().Int("records", n).Msg("results cleared")
	c.publishRecordEvent(ctx, "", "cleared", "")
	c.setStatus(statusCleared)
}

// Speak reads the text aloud; empty text runs the voice check utterance.
func (c *Controller) Speak(ctx context.Context, text string) {
	if text == "" {
		text = checkUtterance
	}
	req := synthesis.Request{Text: text, Locale: c.locale, Rate: c.speakRate}
	if err := c.synth.Speak(ctx, req); err != nil {
		c.log.Warn().Err(err).Msg("speak failed")
		c.setStatus(errPrefixRecognition + err.Error())
	}
}

// Reconnect re-runs the remote store bring-up.
func (c *Controller) Reconnect(ctx context.Context) {
	if err := c.syncer.Connect(ctx); err != nil {
		c.setStatus(statusRemoteFailed)
		return
	}
	c.setStatus(statusRemoteReady)
}

// Snapshot assembles the observable session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	supported := c.supported
	status := c.status
	c.mu.Unlock()

	snap := Snapshot{
		SessionID:   c.id,
		Supported:   supported,
		Records:     c.results.List(),
		SavingIDs:   c.syncer.BusyIDs(),
		RemoteReady: c.syncer.Ready(),
		Status:      status,
	}
	if c.session != nil {
		snap.Listening = c.session.Active()
		snap.InterimText = c.session.InterimText()
	}
	return snap
}

// handleRecognition is the adapter event sink. Events for the session
// arrive in order on a single goroutine.
func (c *Controller) handleRecognition(ev recognition.Event) {
	ctx := context.Background()
	switch ev.Kind {
	case recognition.SessionStarted:
		c.setStatus("")
	case recognition.PartialHypothesis:
		if err := c.publisher.PublishPartial(ctx, c.id, models.TranscriptPartial{
			EventType: "transcript.partial",
			SessionID: c.id,
			Timestamp: time.Now().UnixMilli(),
			Text:      ev.Text,
		}); err != nil {
			c.log.Warn().Err(err).Msg("publish partial")
		}
		c.notify()
	case recognition.FinalHypothesis:
		rec := c.results.Append(*ev.Final)
		if err := c.publisher.PublishFinal(ctx, c.id, models.TranscriptFinal{
			EventType:    "transcript.final",
			SessionID:    c.id,
			Timestamp:    time.Now().UnixMilli(),
			RecordID:     rec.ID,
			Text:         rec.Text,
			Confidence:   rec.Confidence,
			Alternatives: rec.Alternatives,
		}); err != nil {
			c.log.Warn().Err(err).Msg("publish final")
		}
		c.notify()
	case recognition.RecognitionError:
		c.setStatus(errPrefixRecognition + errorText(ev.Error, ev.RawCode))
	case recognition.SessionEnded:
		c.notify()
	}
}

// errorText renders a normalized recognition error for the operator.
func errorText(kind recognition.ErrorKind, raw string) string {
	switch kind {
	case recognition.ErrorNoSpeechDetected:
		return "ไม่ได้ยินเสียงพูด"
	case recognition.ErrorMicrophoneUnavailable:
		return "ไม่สามารถเข้าถึงไมโครโฟนได้"
	case recognition.ErrorPermissionDenied:
		return "ไม่ได้รับอนุญาตให้ใช้ไมโครโฟน"
	case recognition.ErrorNetworkFailure:
		return "เกิดปัญหาเครือข่าย"
	case recognition.ErrorLanguageUnsupported:
		return "ไม่รองรับภาษาที่เลือก"
	default:
		return raw
	}
}

// publishRecordEvent emits a record lifecycle event; the record may already
// be gone locally, so the remote id is looked up best-effort.
func (c *Controller) publishRecordEvent(ctx context.Context, id, eventType, cause string) {
	payload := models.RecordEvent{
		EventType: "record." + eventType,
		SessionID: c.id,
		Timestamp: time.Now().UnixMilli(),
		RecordID:  id,
		Cause:     cause,
	}
	if rec, err := c.results.Get(id); err == nil {
		payload.RemoteID = rec.RemoteID
	}
	if err := c.publisher.PublishRecord(ctx, c.id, payload); err != nil {
		c.log.Warn().Err(err).Str("eventType", eventType).Msg("publish record event")
	}
}

// setStatus records the message and notifies the observer.
func (c *Controller) setStatus(msg string) {
	c.mu.Lock()
	c.status = msg
	c.mu.Unlock()
	c.notify()
}

// notify pushes a fresh snapshot to the observer, if any.
func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.observer
	c.mu.Unlock()
	if fn != nil {
		fn(c.Snapshot())
	}
}
