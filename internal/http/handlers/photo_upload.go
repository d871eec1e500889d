package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/h2non/filetype"
)

// Разрешённые типы фото после уборки.
var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heif": true,
}

type photoUpload struct {
	file      multipart.File
	extension string
	mime      string
}

// openPhoto проверяет магические байты и возвращает файл, перемотанный в начало.
// Расширение берётся из содержимого, а не из имени файла.
func openPhoto(header *multipart.FileHeader) (*photoUpload, error) {
	if header.Size == 0 {
		return nil, fmt.Errorf("файл не может быть пустым")
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл")
	}

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		src.Close()
		return nil, fmt.Errorf("не удалось прочитать файл")
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		src.Close()
		return nil, fmt.Errorf("не удалось определить тип файла. Разрешены только изображения")
	}

	if !allowedPhotoTypes[kind.MIME.Value] {
		src.Close()
		return nil, fmt.Errorf("неподдерживаемый тип файла (%s). Разрешены: %s", kind.MIME.Value, strings.Join(allowedPhotoMIMEs(), ", "))
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		src.Close()
		return nil, fmt.Errorf("не удалось прочитать файл")
	}

	return &photoUpload{file: src, extension: kind.Extension, mime: kind.MIME.Value}, nil
}

func allowedPhotoMIMEs() []string {
	out := make([]string, 0, len(allowedPhotoTypes))
	for mime := range allowedPhotoTypes {
		out = append(out, mime)
	}
	sort.Strings(out)
	return out
}
