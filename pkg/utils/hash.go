package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
)

// ContentHash returns the hex sha256 of the given parts, separated so that
// ("ab", "c") and ("a", "bc") hash differently.
func ContentHash(parts ...[]byte) string {
	hasher := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(hasher, "%d:", len(p))
		hasher.Write(p)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

func GenerateImageHash(img image.Image) (string, error) {
	hasher := sha256.New()
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			fmt.Fprintf(hasher, "%d%d%d%d", r, g, b, a)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
