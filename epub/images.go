package epub

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"readalong/config"
)

// PrepareImage readies one referenced image for packaging: media type
// detection, optional scaling and re-encoding per the images configuration.
// SVG passes through untouched.
func PrepareImage(name string, data []byte, cfg *config.ImagesConfig, log *zap.Logger) (Asset, error) {
	asset := Asset{Name: name, Data: data}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		if strings.HasSuffix(strings.ToLower(name), ".svg") {
			asset.MediaType = "image/svg+xml"
			return asset, nil
		}
		return asset, fmt.Errorf("unable to detect image type of %s", name)
	}
	asset.MediaType = kind.MIME.Value

	needScale := cfg.ScaleFactor > 0.0 && cfg.ScaleFactor != 1.0
	needEncode := cfg.Optimize && kind.Extension == "jpg"
	if !needScale && !needEncode {
		return asset, nil
	}

	img, imgType, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn("Unable to decode image, keeping original", zap.String("file", name), zap.Error(err))
		return asset, nil
	}

	if needScale && (imgType == "png" || imgType == "jpeg") {
		resized := imaging.Resize(img, 0, int(float64(img.Bounds().Dy())*cfg.ScaleFactor), imaging.Linear)
		if resized == nil {
			log.Warn("Unable to resize image, keeping original", zap.String("file", name))
			return asset, nil
		}
		img = resized
		needEncode = true
	}

	if !needEncode {
		return asset, nil
	}

	buf := new(bytes.Buffer)
	switch imgType {
	case "png":
		err = imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case "jpeg":
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(cfg.JPEGQuality))
	default:
		return asset, nil
	}
	if err != nil {
		return asset, fmt.Errorf("unable to encode processed image %s: %w", name, err)
	}
	asset.Data = buf.Bytes()
	return asset, nil
}
