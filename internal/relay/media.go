package relay

import (
	"context"
	"fmt"

	"channel-relay-bot/internal/database/models"
	telegoapi "channel-relay-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// MediaItem is one extracted attachment: its kind and the platform file
// identifier used for sending, persistence and deduplication.
type MediaItem struct {
	Kind   models.MediaKind
	FileID string
}

// ExtractMediaItem returns the message's single supported attachment.
// For photos the largest size variant is chosen. The second return is
// false when the message carries no supported attachment.
func ExtractMediaItem(message telego.Message) (MediaItem, bool) {
	if len(message.Photo) > 0 {
		photo := message.Photo[0]
		for _, p := range message.Photo {
			if p.FileSize > photo.FileSize {
				photo = p
			}
		}
		return MediaItem{Kind: models.MediaKindPhoto, FileID: photo.FileID}, true
	}
	if message.Video != nil {
		return MediaItem{Kind: models.MediaKindVideo, FileID: message.Video.FileID}, true
	}
	if message.Document != nil {
		return MediaItem{Kind: models.MediaKindDocument, FileID: message.Document.FileID}, true
	}
	if message.Audio != nil {
		return MediaItem{Kind: models.MediaKindAudio, FileID: message.Audio.FileID}, true
	}
	if message.Animation != nil {
		return MediaItem{Kind: models.MediaKindAnimation, FileID: message.Animation.FileID}, true
	}
	return MediaItem{}, false
}

// hasAnyMedia reports whether the message carries any attachment at
// all, supported or not. Pure text classification requires none.
func hasAnyMedia(message telego.Message) bool {
	return len(message.Photo) > 0 ||
		message.Video != nil ||
		message.Document != nil ||
		message.Audio != nil ||
		message.Animation != nil ||
		message.Voice != nil ||
		message.VideoNote != nil ||
		message.Sticker != nil
}

// BuildInputMedia builds the batch-send representation for a media
// kind. The second return is false for an unknown kind, which callers
// skip rather than fail on.
func BuildInputMedia(kind models.MediaKind, fileID, caption string) (telego.InputMedia, bool) {
	file := telego.InputFile{FileID: fileID}
	switch kind {
	case models.MediaKindPhoto:
		return &telego.InputMediaPhoto{Type: telego.MediaTypePhoto, Media: file, Caption: caption}, true
	case models.MediaKindVideo:
		return &telego.InputMediaVideo{Type: telego.MediaTypeVideo, Media: file, Caption: caption}, true
	case models.MediaKindDocument:
		return &telego.InputMediaDocument{Type: telego.MediaTypeDocument, Media: file, Caption: caption}, true
	case models.MediaKindAudio:
		return &telego.InputMediaAudio{Type: telego.MediaTypeAudio, Media: file, Caption: caption}, true
	case models.MediaKindAnimation:
		return &telego.InputMediaAnimation{Type: telego.MediaTypeAnimation, Media: file, Caption: caption}, true
	default:
		return nil, false
	}
}

// SendMediaItem sends one attachment of the given kind with the caption
// to the chat. The kind switch is exhaustive over the closed MediaKind
// set; an unknown kind is an error.
func SendMediaItem(ctx context.Context, bot telegoapi.BotAPI, chatID int64, kind models.MediaKind, fileID, caption string) error {
	file := telego.InputFile{FileID: fileID}
	switch kind {
	case models.MediaKindPhoto:
		_, err := bot.SendPhoto(ctx, &telego.SendPhotoParams{ChatID: tu.ID(chatID), Photo: file, Caption: caption})
		return err
	case models.MediaKindVideo:
		_, err := bot.SendVideo(ctx, &telego.SendVideoParams{ChatID: tu.ID(chatID), Video: file, Caption: caption})
		return err
	case models.MediaKindDocument:
		_, err := bot.SendDocument(ctx, &telego.SendDocumentParams{ChatID: tu.ID(chatID), Document: file, Caption: caption})
		return err
	case models.MediaKindAudio:
		_, err := bot.SendAudio(ctx, &telego.SendAudioParams{ChatID: tu.ID(chatID), Audio: file, Caption: caption})
		return err
	case models.MediaKindAnimation:
		_, err := bot.SendAnimation(ctx, &telego.SendAnimationParams{ChatID: tu.ID(chatID), Animation: file, Caption: caption})
		return err
	default:
		return fmt.Errorf("unsupported media kind %q", kind)
	}
}

// BuildInputMediaFromRecords converts persisted media rows to a batch
// send, attaching the caption to the first deliverable item only.
func BuildInputMediaFromRecords(records []models.RelayedMediaItem, caption string) []telego.InputMedia {
	medias := make([]telego.InputMedia, 0, len(records))
	captionApplied := false
	for _, record := range records {
		itemCaption := ""
		if !captionApplied {
			itemCaption = caption
		}
		media, ok := BuildInputMedia(record.Kind, record.FileID, itemCaption)
		if !ok {
			continue
		}
		captionApplied = captionApplied || itemCaption != ""
		medias = append(medias, media)
	}
	return medias
}
