package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageCache provides thread-safe caching of decoded images keyed by path.
//
// Each Load stats the file; a cached image is reused only while the file's
// size and modification time are unchanged, so a photo rewritten in place is
// decoded again. When the cache holds maxEntries images the oldest entry is
// evicted first; a maxEntries of zero means unbounded.
//
//	cache := imaging.NewImageCache(64)
//	img, err := cache.Load("/photos/junction.jpg")
type ImageCache struct {
	mu         sync.RWMutex
	images     map[string]cachedImage
	order      []string
	maxEntries int
}

type cachedImage struct {
	img     image.Image
	size    int64
	modTime time.Time
}

func (e cachedImage) matches(fi os.FileInfo) bool {
	return e.size == fi.Size() && e.modTime.Equal(fi.ModTime())
}

// NewImageCache creates an empty cache holding at most maxEntries images.
func NewImageCache(maxEntries int) *ImageCache {
	return &ImageCache{
		images:     make(map[string]cachedImage),
		maxEntries: max(maxEntries, 0),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG, GIF, BMP and WebP. The path string is the
// cache key; a relative and an absolute path to the same file are cached
// separately. A file that is gone or changed drops its cache entry.
func (c *ImageCache) Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok {
		if entry.matches(fi) {
			return entry.img, nil
		}
		c.Evict(path)
	}

	img, _, err := Decode(f)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, ok := c.images[path]; !ok {
		c.order = append(c.order, path)
	}
	c.images[path] = cachedImage{img: img, size: fi.Size(), modTime: fi.ModTime()}
	if c.maxEntries > 0 && len(c.order) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.images, oldest)
	}
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cachedImage)
	c.order = nil
	c.mu.Unlock()
}

// Evict removes the image cached under path. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok {
		return
	}
	delete(c.images, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Decode reads an image in any registered format and returns the format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// ImageInfo describes an image file without decoding its pixels.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo reads the header of the image at path.
//
// The format comes from the file contents, not the extension.
func LoadImageInfo(path string) (*ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	return &ImageInfo{
		Width:         cfg.Width,
		Height:        cfg.Height,
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}
