// Package gemini распознаёт списки материалов и цены из текста, фото и голоса.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	ErrEmptyInput  = errors.New("нет данных для распознавания")
	ErrNoKey       = errors.New("не задан ключ API")
	ErrUnreadable  = errors.New("не удалось прочитать ответ ИИ")
	ErrEmptyAnswer = errors.New("пустой ответ ИИ")
)

type Item struct {
	NameRaw   string  `json:"name_raw"`
	NameClean string  `json:"name_clean"`
	Qty       float64 `json:"qty"`
	Unit      string  `json:"uom"`
}

type Extraction struct {
	Items    []Item   `json:"items"`
	Warnings []string `json:"warnings"`
}

type Price struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Media вложение: фото (image/jpeg) или голос (audio/ogg)
type Media struct {
	Data []byte
	MIME string
}

const (
	MIMEPhoto = "image/jpeg"
	MIMEVoice = "audio/ogg"
)

const itemsInstruction = `Ты помощник на стройке. Пользователь присылает список материалов текстом, фото или голосом.
Задача:
1. Определи материалы: название, количество, единицу измерения.
2. Отвечай только JSON по схеме ниже, без лишних слов.
3. Единицы только из списка: dona, m, m2, m3, kg, litr, qop, komplekt, pachka, rulon, tonna.
4. Исправляй очевидно неверные единицы: рейка меряется в m, плитка в m2, бетон в m3.
5. Если количество не названо, ставь 1.
6. Если запрос непонятен, объясни причину в warnings.

Схема:
{"items":[{"name_raw":"как написал пользователь","name_clean":"нормализованное название","qty":1,"uom":"dona"}],"warnings":[]}`

const pricesInstruction = `Ты помощник снабженца. В сообщении перечислены материалы и их цены.
Задача:
1. Выдели название материала и цену.
2. Цена только числом в сумах; «50 тысяч» → 50000, «1,2 миллиона» → 1200000.
3. Если название неразборчиво, всё равно запиши как услышал.

Схема:
{"items":[{"name":"Gipsokarton","price":50000}]}`

type Client struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	if model == "" {
		model = "gemini-flash-latest"
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

func (c *Client) generate(ctx context.Context, instruction string, temperature float32, parts []genai.Part) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}
	m.SetTemperature(temperature)
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyAnswer
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyAnswer
	}
	return b.String(), nil
}

func buildParts(text string, media *Media) []genai.Part {
	var parts []genai.Part
	if t := strings.TrimSpace(text); t != "" {
		parts = append(parts, genai.Text(t))
	}
	if media != nil && len(media.Data) > 0 && media.MIME != "" {
		parts = append(parts, genai.Blob{MIMEType: media.MIME, Data: media.Data})
	}
	return parts
}

// ExtractItems список материалов из текста и/или вложения
func (c *Client) ExtractItems(ctx context.Context, text string, media *Media) (Extraction, error) {
	parts := buildParts(text, media)
	if len(parts) == 0 {
		return Extraction{}, ErrEmptyInput
	}
	raw, err := c.generate(ctx, itemsInstruction, 0.2, parts)
	if err != nil {
		return Extraction{}, err
	}
	return ParseExtraction(raw)
}

// ExtractPrices пары «название — цена», обычно из голосового
func (c *Client) ExtractPrices(ctx context.Context, text string, media *Media) ([]Price, error) {
	parts := buildParts(text, media)
	if len(parts) == 0 {
		return nil, ErrEmptyInput
	}
	raw, err := c.generate(ctx, pricesInstruction, 0.1, parts)
	if err != nil {
		return nil, err
	}
	return ParsePrices(raw)
}

func ParseExtraction(raw string) (Extraction, error) {
	var out Extraction
	if err := decodeLenient(raw, &out); err != nil {
		return Extraction{}, err
	}
	return out, nil
}

func ParsePrices(raw string) ([]Price, error) {
	var out struct {
		Items []Price `json:"items"`
	}
	if err := decodeLenient(raw, &out); err != nil {
		return nil, err
	}
	prices := out.Items[:0]
	for _, p := range out.Items {
		if strings.TrimSpace(p.Name) != "" && p.Price > 0 {
			prices = append(prices, p)
		}
	}
	return prices, nil
}

// decodeLenient JSON как есть, затем без обёртки ```json ... ```
func decodeLenient(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return nil
}
