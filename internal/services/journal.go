package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/textjournal/backend/internal/cryptox"
	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/models"
	"github.com/textjournal/backend/internal/storage"
	"github.com/textjournal/backend/internal/utils"
)

const (
	maxTitleLength = 200
	maxTags        = 20
)

// PhotoUpload is one file attached on create or update.
type PhotoUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type PhotoView struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// EntryView is a decrypted entry. Degraded is set when title or content
// could not be decrypted and the stored value is shown as-is.
type EntryView struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Source    string      `json:"source"`
	EntryDate string      `json:"entry_date"`
	Tags      []string    `json:"tags"`
	Photos    []PhotoView `json:"photos"`
	Degraded  bool        `json:"decryption_fallback,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type CreateEntryInput struct {
	Title   string
	Content string
	Tags    []string
	Source  string
	Photos  []PhotoUpload
}

// UpdateEntryInput: nil fields are left unchanged. Tags, when set, replace
// the whole set.
type UpdateEntryInput struct {
	Title          *string
	Content        *string
	Tags           *[]string
	RemovePhotoIDs []string
	AddPhotos      []PhotoUpload
}

// EntryResult pairs an entry with the photo operations that did not succeed.
type EntryResult struct {
	Entry    *EntryView `json:"entry"`
	Warnings []string   `json:"warnings,omitempty"`
}

type ListFilter struct {
	Tag    string
	Query  string
	From   string
	To     string
	Limit  int
	Offset int
}

type Stats struct {
	TotalEntries  int64            `json:"total_entries"`
	BySource      map[string]int64 `json:"by_source"`
	DistinctDays  int64            `json:"distinct_days"`
	CurrentStreak int              `json:"current_streak"`
	Today         string           `json:"today"`
}

// JournalService encrypts entries on write and decrypts them on read with
// per-entry fallback. Photo paths become URLs only when read.
type JournalService struct {
	db     *gorm.DB
	cipher *cryptox.ContentCipher
	photos storage.PhotoStore
	tz     *TimezoneService
	log    logging.Logger
	now    func() time.Time
}

func NewJournalService(db *gorm.DB, cipher *cryptox.ContentCipher, photos storage.PhotoStore, tz *TimezoneService, log logging.Logger, now func() time.Time) *JournalService {
	if now == nil {
		now = time.Now
	}
	return &JournalService{db: db, cipher: cipher, photos: photos, tz: tz, log: log, now: now}
}

// List returns the user's entries, newest day first. One undecryptable
// entry degrades on its own and never fails the listing.
func (s *JournalService) List(ctx context.Context, userID string, f ListFilter) ([]EntryView, error) {
	q := s.db.WithContext(ctx).Preload("Photos", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Where("user_id = ?", userID)
	if f.From != "" {
		q = q.Where("entry_date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("entry_date <= ?", f.To)
	}
	q = q.Order("entry_date DESC").Order("created_at DESC")

	// tag and text filters run on decrypted rows, so paging happens after
	filterInMemory := f.Tag != "" || f.Query != ""
	if !filterInMemory {
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
		if f.Offset > 0 {
			q = q.Offset(f.Offset)
		}
	}

	var rows []models.JournalEntry
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	views := make([]EntryView, 0, len(rows))
	tag := strings.ToLower(strings.TrimSpace(f.Tag))
	needle := strings.ToLower(strings.TrimSpace(f.Query))
	for i := range rows {
		v := s.view(ctx, &rows[i])
		if tag != "" && !hasTag(v.Tags, tag) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(v.Title), needle) && !strings.Contains(strings.ToLower(v.Content), needle) {
			continue
		}
		views = append(views, v)
	}

	if filterInMemory {
		if f.Offset > 0 {
			if f.Offset >= len(views) {
				return []EntryView{}, nil
			}
			views = views[f.Offset:]
		}
		if f.Limit > 0 && len(views) > f.Limit {
			views = views[:f.Limit]
		}
	}
	return views, nil
}

func (s *JournalService) Get(ctx context.Context, userID, id string) (*EntryView, error) {
	e, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, e)
	return &v, nil
}

// Create stores a new entry. The entry date is today's date in the user's
// timezone and never changes afterwards.
func (s *JournalService) Create(ctx context.Context, user *models.User, in CreateEntryInput) (*EntryResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, invalid("Content is required")
	}
	title := strings.TrimSpace(in.Title)
	if len(title) > maxTitleLength {
		return nil, invalid("Title must be at most %d characters", maxTitleLength)
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	source := in.Source
	if source == "" {
		source = models.SourceWeb
	}
	if source != models.SourceWeb && source != models.SourceSMS {
		return nil, invalid("Invalid source")
	}

	encTitle, err := s.cipher.Encrypt(title, user.ID)
	if err != nil {
		return nil, fmt.Errorf("encrypt title: %w", err)
	}
	encContent, err := s.cipher.Encrypt(content, user.ID)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}

	now := s.now().UTC()
	entry := models.JournalEntry{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Title:     encTitle,
		Content:   encContent,
		Source:    source,
		EntryDate: utils.LocalDate(now, user.TimezoneOrUTC()),
		Tags:      datatypes.JSONSlice[string](tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	warnings := s.addPhotos(ctx, &entry, in.Photos)

	v, err := s.Get(ctx, user.ID, entry.ID)
	if err != nil {
		return nil, err
	}
	return &EntryResult{Entry: v, Warnings: warnings}, nil
}

// Update re-encrypts changed fields, replaces tags wholesale when given,
// then removes and adds photos. Each photo operation fails on its own and
// is reported as a warning.
func (s *JournalService) Update(ctx context.Context, userID, id string, in UpdateEntryInput) (*EntryResult, error) {
	entry, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if len(title) > maxTitleLength {
			return nil, invalid("Title must be at most %d characters", maxTitleLength)
		}
		enc, err := s.cipher.Encrypt(title, userID)
		if err != nil {
			return nil, fmt.Errorf("encrypt title: %w", err)
		}
		updates["title"] = enc
	}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, invalid("Content is required")
		}
		enc, err := s.cipher.Encrypt(content, userID)
		if err != nil {
			return nil, fmt.Errorf("encrypt content: %w", err)
		}
		updates["content"] = enc
	}
	if in.Tags != nil {
		tags, err := normalizeTags(*in.Tags)
		if err != nil {
			return nil, err
		}
		updates["tags"] = datatypes.JSONSlice[string](tags)
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now().UTC()
		if err := s.db.WithContext(ctx).Model(&models.JournalEntry{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update entry: %w", err)
		}
	}

	var warnings []string
	for _, photoID := range in.RemovePhotoIDs {
		if err := s.removePhoto(ctx, entry, photoID); err != nil {
			s.log.Warn(ctx, "photo removal failed", "entry_id", id, "photo_id", photoID, "error", err)
			warnings = append(warnings, fmt.Sprintf("could not remove photo %s", photoID))
		}
	}
	warnings = append(warnings, s.addPhotos(ctx, entry, in.AddPhotos)...)

	v, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &EntryResult{Entry: v, Warnings: warnings}, nil
}

// Delete removes the entry and its photo rows, then the stored objects.
// Object removal is best-effort.
func (s *JournalService) Delete(ctx context.Context, userID, id string) error {
	entry, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", entry.ID).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", entry.ID, userID).Delete(&models.JournalEntry{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	for _, p := range entry.Photos {
		if err := s.photos.Remove(ctx, p.StoragePath); err != nil {
			s.log.Warn(ctx, "orphaned photo object", "entry_id", entry.ID, "path", p.StoragePath, "error", err)
		}
	}
	return nil
}

// RemovePhoto detaches one photo from an entry the user owns.
func (s *JournalService) RemovePhoto(ctx context.Context, userID, entryID, photoID string) error {
	entry, err := s.load(ctx, userID, entryID)
	if err != nil {
		return err
	}
	return s.removePhoto(ctx, entry, photoID)
}

// Stats summarizes the user's journal. The streak counts consecutive days
// with entries ending today or yesterday in the user's timezone.
func (s *JournalService) Stats(ctx context.Context, user *models.User) (*Stats, error) {
	st := &Stats{BySource: map[string]int64{}}

	type sourceCount struct {
		Source string
		Count  int64
	}
	var counts []sourceCount
	if err := s.db.WithContext(ctx).Model(&models.JournalEntry{}).
		Select("source, COUNT(*) AS count").
		Where("user_id = ?", user.ID).
		Group("source").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	for _, c := range counts {
		st.BySource[c.Source] = c.Count
		st.TotalEntries += c.Count
	}

	var days []string
	if err := s.db.WithContext(ctx).Model(&models.JournalEntry{}).
		Where("user_id = ?", user.ID).
		Distinct().
		Order("entry_date DESC").
		Pluck("entry_date", &days).Error; err != nil {
		return nil, fmt.Errorf("entry days: %w", err)
	}
	st.DistinctDays = int64(len(days))

	st.Today = s.tz.CurrentUserDate(user.TimezoneOrUTC())
	st.CurrentStreak = streak(days, st.Today)
	return st, nil
}

// CreateFromSMS files an inbound text message for the account that owns
// the sender's number. The first line becomes the title.
func (s *JournalService) CreateFromSMS(ctx context.Context, from, body string) (*EntryResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("phone_number = ?", utils.NormalizePhoneNumber(from)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownPhone
	}
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	title := body
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > 80 {
		title = string(r[:80])
	}

	return s.Create(ctx, &user, CreateEntryInput{Title: title, Content: body, Source: models.SourceSMS})
}

func (s *JournalService) load(ctx context.Context, userID, id string) (*models.JournalEntry, error) {
	var e models.JournalEntry
	err := s.db.WithContext(ctx).Preload("Photos", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Where("id = ? AND user_id = ?", id, userID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}
	return &e, nil
}

func (s *JournalService) view(ctx context.Context, e *models.JournalEntry) EntryView {
	title := s.cipher.DecryptWithFallback(e.Title, e.UserID)
	content := s.cipher.DecryptWithFallback(e.Content, e.UserID)
	if title.FellBack || content.FellBack {
		s.log.Warn(ctx, "entry decryption fell back to stored value",
			"entry_id", e.ID, "title_reason", reasonOf(title), "content_reason", reasonOf(content))
	}

	v := EntryView{
		ID:        e.ID,
		Title:     title.Value,
		Content:   content.Value,
		Source:    e.Source,
		EntryDate: e.EntryDate,
		Tags:      []string(e.Tags),
		Photos:    make([]PhotoView, 0, len(e.Photos)),
		Degraded:  title.FellBack || content.FellBack,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	for _, p := range e.Photos {
		url, err := s.photos.URL(ctx, p.StoragePath)
		if err != nil {
			s.log.Warn(ctx, "photo url resolution failed", "photo_id", p.ID, "error", err)
		}
		v.Photos = append(v.Photos, PhotoView{ID: p.ID, FileName: p.FileName, ContentType: p.ContentType, URL: url, CreatedAt: p.CreatedAt})
	}
	return v
}

func (s *JournalService) addPhotos(ctx context.Context, entry *models.JournalEntry, uploads []PhotoUpload) []string {
	var warnings []string
	for _, up := range uploads {
		if err := s.addPhoto(ctx, entry, up); err != nil {
			s.log.Warn(ctx, "photo upload failed", "entry_id", entry.ID, "file", up.FileName, "error", err)
			warnings = append(warnings, fmt.Sprintf("could not add photo %s", up.FileName))
		}
	}
	return warnings
}

func (s *JournalService) addPhoto(ctx context.Context, entry *models.JournalEntry, up PhotoUpload) error {
	key := storage.PhotoKey(entry.UserID, entry.ID, up.FileName)
	if err := s.photos.Upload(ctx, key, up.Body, up.Size, up.ContentType); err != nil {
		return err
	}

	photo := models.Photo{
		ID:          uuid.NewString(),
		EntryID:     entry.ID,
		UserID:      entry.UserID,
		StoragePath: key,
		FileName:    up.FileName,
		ContentType: up.ContentType,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&photo).Error; err != nil {
		if rmErr := s.photos.Remove(ctx, key); rmErr != nil {
			s.log.Warn(ctx, "orphaned photo object", "path", key, "error", rmErr)
		}
		return fmt.Errorf("save photo: %w", err)
	}
	return nil
}

// removePhoto deletes the stored object first; the reference is only
// dropped once the object is gone.
func (s *JournalService) removePhoto(ctx context.Context, entry *models.JournalEntry, photoID string) error {
	var photo *models.Photo
	for i := range entry.Photos {
		if entry.Photos[i].ID == photoID {
			photo = &entry.Photos[i]
			break
		}
	}
	if photo == nil {
		return ErrNotFound
	}

	if err := s.photos.Remove(ctx, photo.StoragePath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Where("id = ? AND entry_id = ?", photo.ID, entry.ID).Delete(&models.Photo{}).Error
}

func normalizeTags(in []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		if len(t) > 50 {
			return nil, invalid("Tag %q is too long", t)
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, invalid("At most %d tags are allowed", maxTags)
	}
	sort.Strings(out)
	return out, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func reasonOf(d cryptox.Decrypted) string {
	if d.Reason == nil {
		return ""
	}
	return d.Reason.Error()
}

// streak counts consecutive days in days (sorted descending) that end at
// today or the day before.
func streak(days []string, today string) int {
	if len(days) == 0 {
		return 0
	}
	expected := today
	if days[0] != today {
		yesterday, err := PreviousDate(today)
		if err != nil || days[0] != yesterday {
			return 0
		}
		expected = yesterday
	}

	n := 0
	for _, d := range days {
		if d != expected {
			break
		}
		n++
		prev, err := PreviousDate(expected)
		if err != nil {
			break
		}
		expected = prev
	}
	return n
}
