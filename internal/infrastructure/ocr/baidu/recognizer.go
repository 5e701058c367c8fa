package baidu

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

type Recognizer struct {
	client *Client
}

func NewRecognizer(client *Client) *Recognizer {
	return &Recognizer{client: client}
}

type ocrResponse struct {
	WordsResult []struct {
		Words string `json:"words"`
	} `json:"words_result"`
	WordsResultNum int    `json:"words_result_num"`
	ErrorCode      int    `json:"error_code"`
	ErrorMsg       string `json:"error_msg"`
}

// Recognize submits one image and joins the returned lines in service order.
func (r *Recognizer) Recognize(ctx context.Context, image []byte, cred domain.Credential) domain.Recognition {
	if !cred.Valid() {
		return domain.RecognitionFailedWith(domain.WrapError(domain.ErrAuth, "baidu ocr", errors.New("no access token")))
	}
	if len(image) == 0 {
		return domain.RecognitionFailedWith(domain.WrapError(domain.ErrInvalidInput, "baidu ocr", errors.New("empty image payload")))
	}

	endpoint, err := url.Parse(r.client.ocrURL)
	if err != nil {
		return domain.RecognitionFailedWith(fmt.Errorf("parse ocr url: %w", err))
	}
	query := endpoint.Query()
	query.Set("access_token", cred.Token)
	endpoint.RawQuery = query.Encode()

	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(image))
	form.Set("language_type", r.client.language)

	var response ocrResponse
	call := func(callCtx context.Context) error {
		response = ocrResponse{}
		if err := r.client.postForm(callCtx, endpoint.String(), form, &response, "ocr"); err != nil {
			return err
		}
		if response.ErrorCode != 0 {
			return &APIError{Code: response.ErrorCode, Message: response.ErrorMsg}
		}
		return nil
	}
	if err := r.client.execute(ctx, "baidu.ocr", call); err != nil {
		return domain.RecognitionFailedWith(domain.WrapError(domain.ErrRecognition, "baidu ocr", err))
	}

	fragments := make([]string, 0, len(response.WordsResult))
	for _, w := range response.WordsResult {
		fragments = append(fragments, w.Words)
	}
	return domain.Recognized(strings.Join(fragments, fragmentSeparator))
}
