// pkg/lots/lots.go
package lots

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sivam-Manoj/clearvalue-sample-cam/pkg/camera"
)

// CaptureMode is how a lot's main sequence was shot. A lot locks to the
// mode of its first main capture.
type CaptureMode int

const (
	ModeBundle CaptureMode = iota
	ModePerItem
	ModePerPhoto
)

func (m CaptureMode) String() string {
	switch m {
	case ModeBundle:
		return "bundle"
	case ModePerItem:
		return "per-item"
	case ModePerPhoto:
		return "per-photo"
	}
	return "unknown"
}

// AssetKind distinguishes photos from video.
type AssetKind int

const (
	KindPhoto AssetKind = iota
	KindVideo
)

// Asset is one captured photo or video. Immutable once filed, except
// that a display variant may be attached later by post-processing.
type Asset struct {
	ID             string
	Locator        string
	DisplayLocator string
	Width          int
	Height         int
	Megapixels     float64
	Focus          *camera.FocusRegion
	Kind           AssetKind
	CapturedAt     time.Time
}

// Errors surfaced by the store. ModeMismatch is recoverable: the caller
// lets the user cancel or start a new lot.
var (
	ErrModeMismatch    = errors.New("lot already locked to a different capture mode")
	ErrVideoNeedsMode  = errors.New("lot has no capture mode yet; take a photo first")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// lot is the mutable aggregate. mode == modeUnset until the first main
// capture locks it.
const modeUnset CaptureMode = -1

type lot struct {
	id    string
	mode  CaptureMode
	main  []Asset // newest first
	extra []Asset // newest first
	video *Asset
	cover int
}

func (l *lot) clampCover() {
	if len(l.main) == 0 {
		l.cover = 0
		return
	}
	if l.cover > len(l.main)-1 {
		l.cover = len(l.main) - 1
	}
	if l.cover < 0 {
		l.cover = 0
	}
}

// Snapshot is a read-only copy of one lot handed to observers.
type Snapshot struct {
	ID          string
	Mode        *CaptureMode
	MainImages  []Asset
	ExtraImages []Asset
	Video       *Asset
	CoverIndex  int
}

// Store owns the ordered lot collection and the active-lot cursor. All
// mutations happen on the control thread while snapshots are read at UI
// frame rate, so every method is mutex-guarded and readers get copies.
type Store struct {
	mu     sync.RWMutex
	lots   []*lot
	active int
	newID  func() string
}

// NewStore returns a store seeded with one empty lot.
func NewStore() *Store {
	s := &Store{newID: uuid.NewString}
	s.lots = []*lot{s.newLot()}
	return s
}

func (s *Store) newLot() *lot {
	return &lot{id: s.newID(), mode: modeUnset}
}

// Len returns the number of lots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lots)
}

// ActiveIndex returns the active-lot cursor.
func (s *Store) ActiveIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Snapshot returns a copy of the lot at index.
func (s *Store) Snapshot(index int) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.lots) {
		return Snapshot{}, ErrIndexOutOfRange
	}
	return s.snapshotLocked(s.lots[index]), nil
}

// ActiveSnapshot returns a copy of the active lot.
func (s *Store) ActiveSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(s.lots[s.active])
}

func (s *Store) snapshotLocked(l *lot) Snapshot {
	snap := Snapshot{
		ID:          l.id,
		MainImages:  append([]Asset(nil), l.main...),
		ExtraImages: append([]Asset(nil), l.extra...),
		CoverIndex:  l.cover,
	}
	if l.mode != modeUnset {
		m := l.mode
		snap.Mode = &m
	}
	if l.video != nil {
		v := *l.video
		snap.Video = &v
	}
	return snap
}

// CanCapture reports whether a main capture in the given mode would be
// accepted by the active lot, without mutating anything. Extras are
// always accepted.
func (s *Store) CanCapture(mode CaptureMode, isExtra bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.lots[s.active]
	if !isExtra && l.mode != modeUnset && l.mode != mode {
		return ErrModeMismatch
	}
	return nil
}

// Capture files an asset into the active lot. Main captures lock the
// lot's mode on first use and are rejected with ErrModeMismatch when the
// lot is already locked to a different mode; extras never assert a mode.
// Newest captures go first.
func (s *Store) Capture(mode CaptureMode, isExtra bool, asset Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lots[s.active]

	if isExtra {
		l.extra = append([]Asset{asset}, l.extra...)
		return nil
	}
	if l.mode != modeUnset && l.mode != mode {
		return ErrModeMismatch
	}
	l.mode = mode
	l.main = append([]Asset{asset}, l.main...)
	l.clampCover()
	return nil
}

// SetCover selects which main image fronts the lot. Out-of-range values
// are clamped; a lot with no main images keeps cover 0.
func (s *Store) SetCover(lotIndex, mainImageIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lotIndex < 0 || lotIndex >= len(s.lots) {
		return ErrIndexOutOfRange
	}
	l := s.lots[lotIndex]
	l.cover = mainImageIndex
	l.clampCover()
	return nil
}

// RemoveMainImage deletes a main image by index and re-clamps the cover.
func (s *Store) RemoveMainImage(lotIndex, imageIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lotIndex < 0 || lotIndex >= len(s.lots) {
		return ErrIndexOutOfRange
	}
	l := s.lots[lotIndex]
	if imageIndex < 0 || imageIndex >= len(l.main) {
		return ErrIndexOutOfRange
	}
	l.main = append(l.main[:imageIndex], l.main[imageIndex+1:]...)
	l.clampCover()
	return nil
}

// RemoveExtraImage deletes an extra image by index.
func (s *Store) RemoveExtraImage(lotIndex, imageIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lotIndex < 0 || lotIndex >= len(s.lots) {
		return ErrIndexOutOfRange
	}
	l := s.lots[lotIndex]
	if imageIndex < 0 || imageIndex >= len(l.extra) {
		return ErrIndexOutOfRange
	}
	l.extra = append(l.extra[:imageIndex], l.extra[imageIndex+1:]...)
	return nil
}

// AttachVideo sets the lot's video. Recording is gated on the lot's mode
// being established by at least one photo; callers surface the error to
// the user instead of failing silently.
func (s *Store) AttachVideo(lotIndex int, asset Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lotIndex < 0 || lotIndex >= len(s.lots) {
		return ErrIndexOutOfRange
	}
	l := s.lots[lotIndex]
	if l.mode == modeUnset {
		return ErrVideoNeedsMode
	}
	l.video = &asset
	return nil
}

// AdvanceLot moves the cursor forward, appending a fresh empty lot when
// the cursor is already on the last one. Returns the new active index.
func (s *Store) AdvanceLot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == len(s.lots)-1 {
		s.lots = append(s.lots, s.newLot())
	}
	s.active++
	return s.active
}

// RetreatLot moves the cursor back, stopping at the first lot. Returns
// the new active index.
func (s *Store) RetreatLot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active > 0 {
		s.active--
	}
	return s.active
}

// DeleteLot removes a lot. The store re-seeds itself with one empty lot
// when the last one goes, and the cursor is fixed up to stay valid.
func (s *Store) DeleteLot(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.lots) {
		return ErrIndexOutOfRange
	}
	s.lots = append(s.lots[:index], s.lots[index+1:]...)
	if len(s.lots) == 0 {
		s.lots = []*lot{s.newLot()}
		s.active = 0
		return nil
	}
	if s.active >= len(s.lots) {
		s.active = len(s.lots) - 1
	} else if s.active > index {
		s.active--
	}
	return nil
}

// ResetMode force-clears a lot's mode lock. The only way mode changes
// after the first main capture.
func (s *Store) ResetMode(lotIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lotIndex < 0 || lotIndex >= len(s.lots) {
		return ErrIndexOutOfRange
	}
	s.lots[lotIndex].mode = modeUnset
	return nil
}

// AttachDisplayLocator attaches a post-processed display variant to the
// asset with the given ID, wherever it is filed. Other fields stay
// untouched. Returns false when no asset matches.
func (s *Store) AttachDisplayLocator(assetID, locator string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lots {
		for i := range l.main {
			if l.main[i].ID == assetID {
				l.main[i].DisplayLocator = locator
				return true
			}
		}
		for i := range l.extra {
			if l.extra[i].ID == assetID {
				l.extra[i].DisplayLocator = locator
				return true
			}
		}
		if l.video != nil && l.video.ID == assetID {
			l.video.DisplayLocator = locator
			return true
		}
	}
	return false
}
