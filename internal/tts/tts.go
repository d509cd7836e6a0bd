// Package tts synthesizes pronunciation audio for flashcards.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// Mandarin is the language code used for hanzi pronunciation.
const Mandarin = "zh-CN"

// ContentType of the audio Synthesize returns.
const ContentType = "audio/mpeg"

// Synthesizer turns text into MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}

// Google synthesizes speech with Google Cloud Text-to-Speech.
type Google struct {
	client *texttospeech.Client
}

// NewGoogle creates a Text-to-Speech client. Credentials come from
// credentialsFile when set, otherwise from application default credentials.
func NewGoogle(ctx context.Context, credentialsFile string) (*Google, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech client: %w", err)
	}
	return &Google{client: c}, nil
}

// Close releases the client.
func (g *Google) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Synthesize returns MP3 audio of text spoken in languageCode.
func (g *Google) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	req, err := speechRequest(text, languageCode)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, errors.New("synthesize speech: empty audio")
	}
	return resp.GetAudioContent(), nil
}

func speechRequest(text, languageCode string) (*texttospeechpb.SynthesizeSpeechRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("synthesize speech: empty text")
	}
	if languageCode == "" {
		languageCode = Mandarin
	}
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}, nil
}
