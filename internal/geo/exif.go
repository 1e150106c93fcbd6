package geo

import (
	"io"
	"log"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ExtractGPS reads EXIF metadata from an uploaded image and returns the
// embedded GPS position as decimal degrees. Missing or corrupt metadata is a
// normal outcome, reported as ok=false, never as an error.
func ExtractGPS(r io.Reader) (lat, lon float64, ok bool) {
	meta, err := exif.Decode(r)
	if err != nil {
		log.Printf("[EXIF] no usable metadata in image: %v", err)
		return 0, 0, false
	}

	lat, ok = decodeCoordinate(meta, exif.GPSLatitude, exif.GPSLatitudeRef, "S")
	if !ok {
		return 0, 0, false
	}
	lon, ok = decodeCoordinate(meta, exif.GPSLongitude, exif.GPSLongitudeRef, "W")
	if !ok {
		return 0, 0, false
	}
	return lat, lon, true
}

func decodeCoordinate(meta *exif.Exif, field, refField exif.FieldName, negativeRef string) (float64, bool) {
	tag, err := meta.Get(field)
	if err != nil {
		return 0, false
	}

	value, ok := dmsToDegrees(tag)
	if !ok {
		return 0, false
	}

	if ref, err := meta.Get(refField); err == nil {
		if s, err := ref.StringVal(); err == nil && s == negativeRef {
			value = -value
		}
	}
	return value, true
}

// dmsToDegrees converts a degrees/minutes/seconds rational triple to decimal
// degrees.
func dmsToDegrees(tag *tiff.Tag) (float64, bool) {
	if tag.Count < 3 {
		return 0, false
	}

	parts := make([]float64, 3)
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		parts[i] = float64(num) / float64(den)
	}
	return parts[0] + parts[1]/60.0 + parts[2]/3600.0, true
}
