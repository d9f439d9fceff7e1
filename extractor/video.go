package extractor

import (
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/media"
)

// newVideo builds the final descriptor, failing with an ExtractionError
// when source is empty.
func newVideo(name, source string, opts ...media.Option) (*media.Video, error) {
	video, err := media.NewVideo(source, opts...)
	if err != nil {
		return nil, errs.Extraction(name, "build video", err)
	}
	return video, nil
}

// acceptLanguage returns the Accept-Language header used for lang.
func acceptLanguage(lang string) string {
	switch lang {
	case "en":
		return "en-US,en;q=0.9"
	case "fr":
		return "fr-FR,fr;q=0.9"
	default:
		return "it-IT,it;q=0.9"
	}
}
