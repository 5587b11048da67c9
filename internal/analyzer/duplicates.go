package analyzer

import (
	"github.com/corona10/goimagehash"
)

// duplicateThreshold is the largest dHash Hamming distance treated as the same picture.
const duplicateThreshold = 10

// FindDuplicates returns, per image, the index of an earlier image it is a
// perceptual duplicate of, or nil. Images that fail to decode are never duplicates.
func FindDuplicates(images [][]byte, maxPixels int) []*int {
	out := make([]*int, len(images))
	hashes := make([]*goimagehash.ImageHash, len(images))

	for i, data := range images {
		img, _, err := DecodeImage(data, maxPixels)
		if err != nil {
			continue
		}
		hash, err := goimagehash.DifferenceHash(downscale(img, 256))
		if err != nil {
			continue
		}
		hashes[i] = hash

		for j := 0; j < i; j++ {
			if hashes[j] == nil || out[j] != nil {
				continue
			}
			dist, err := hash.Distance(hashes[j])
			if err == nil && dist < duplicateThreshold {
				idx := j
				out[i] = &idx
				break
			}
		}
	}
	return out
}
