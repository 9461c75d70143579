package content

import (
	"fmt"
	"strings"
)

const imageCDN = "https://cdn.sanity.io/images"

// ImageURL builds a CDN url for an image asset of the given size. Assets
// without a well-formed reference, such as the fixture placeholders, map to
// the local placeholder image.
func ImageURL(projectID, dataset string, img *Image, width, height int) string {
	placeholder := fmt.Sprintf("/placeholder.svg?height=%d&width=%d", height, width)

	// image-<id>-<width>x<height>-<format>
	parts := strings.Split(img.Ref(), "-")
	if len(parts) != 4 || parts[0] != "image" || !strings.Contains(parts[2], "x") {
		return placeholder
	}
	if projectID == "" || projectID == FallbackProjectID {
		return placeholder
	}

	return fmt.Sprintf("%s/%s/%s/%s-%s.%s?w=%d&h=%d&fit=crop",
		imageCDN, projectID, dataset, parts[1], parts[2], parts[3], width, height)
}
