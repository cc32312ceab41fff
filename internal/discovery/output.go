package discovery

import "path/filepath"

const fallbackOutputName = "output_video.mp4"

// DefaultOutputPath computes where a run writes its deliverable when the user
// gives no --output: downloads/<productID>/<productID>-video.mp4, or
// output_video.mp4 in the working directory when no product ID was found.
func DefaultOutputPath(downloadsDir, productID string) string {
	if productID == "" {
		return fallbackOutputName
	}
	return filepath.Join(downloadsDir, productID, productID+"-video.mp4")
}
