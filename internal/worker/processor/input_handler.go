package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"slidecast/internal/pkg/errors"
	"slidecast/internal/ports"
)

type InputHandler struct {
	sp ports.StorageProvider
}

func NewInputHandler(sp ports.StorageProvider) *InputHandler {
	return &InputHandler{sp: sp}
}

// Materialize copies the job's photos and audio from storage into dir.
// Photos keep their upload order.
func (ih *InputHandler) Materialize(ctx context.Context, dir string, job *ParsedJob) (*Inputs, error) {
	const op = "processor.inputs"

	inputsDir := filepath.Join(dir, "inputs")
	if err := os.MkdirAll(inputsDir, 0o755); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInputFailed, op, "failed to create inputs directory")
	}

	in := &Inputs{Photos: make([]string, 0, len(job.PhotoKeys))}
	for i, key := range job.PhotoKeys {
		p, err := ih.materializeInput(ctx, inputsDir, "photo", i, key)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInputFailed, op,
				fmt.Sprintf("failed to fetch photo %d", i)).WithField("object_key", key)
		}
		in.Photos = append(in.Photos, p)
	}

	if job.HasAudio() {
		p, err := ih.materializeInput(ctx, inputsDir, "audio", -1, job.AudioKey)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInputFailed, op, "failed to fetch audio").
				WithField("object_key", job.AudioKey)
		}
		in.Audio = p
	}
	return in, nil
}

func (ih *InputHandler) materializeInput(ctx context.Context, dir, kind string, index int, objectKey string) (string, error) {
	rc, contentType, _, err := ih.sp.GetObject(ctx, objectKey)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	localPath := filepath.Join(dir, localName(kind, index, objectKey, contentType))
	f, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return "", err
	}
	return localPath, f.Sync()
}
