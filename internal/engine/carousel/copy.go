package carousel

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/anatolykoptev/go_carousel/internal/engine"
)

const (
	captionPoints = 5
	maxHashtags   = 15
)

// Copy is the Instagram post text that accompanies a carousel.
type Copy struct {
	Caption        string   `json:"caption"`
	Hashtags       string   `json:"hashtags"`
	HashtagsList   []string `json:"hashtags_list"`
	CTA            string   `json:"cta"`
	FullPost       string   `json:"full_post"`
	CharacterCount int      `json:"character_count"`
}

var baseHashtags = []string{
	"#conocimiento",
	"#aprendizaje",
	"#educacion",
	"#consejos",
	"#insights",
	"#motivacion",
	"#crecimientopersonal",
	"#desarrollopersonal",
	"#carrusel",
	"#infografia",
}

// topicHashtags maps a keyword found in the transcript to topic tags.
// Only the first two tags of each matched topic are used.
var topicHashtags = []struct {
	keyword string
	tags    []string
}{
	{"negocio", []string{"#negocios", "#emprendedor", "#exito", "#startup"}},
	{"business", []string{"#negocios", "#emprendedor", "#exito", "#startup"}},
	{"tecnología", []string{"#tecnologia", "#tech", "#innovacion", "#digital"}},
	{"tech", []string{"#tecnologia", "#tech", "#innovacion", "#digital"}},
	{"marketing", []string{"#marketing", "#marketingdigital", "#redessociales", "#marca"}},
	{"finanzas", []string{"#finanzas", "#inversiones", "#dinero", "#finanzaspersonales"}},
	{"finance", []string{"#finanzas", "#inversiones", "#dinero", "#finanzaspersonales"}},
	{"salud", []string{"#salud", "#bienestar", "#fitness", "#vidasaludable"}},
	{"health", []string{"#salud", "#bienestar", "#fitness", "#vidasaludable"}},
	{"productividad", []string{"#productividad", "#gestiondeltiempo", "#eficiencia", "#habitos"}},
	{"productivity", []string{"#productividad", "#gestiondeltiempo", "#eficiencia", "#habitos"}},
	{"liderazgo", []string{"#liderazgo", "#gestion", "#trabajoenequipo", "#lider"}},
	{"leadership", []string{"#liderazgo", "#gestion", "#trabajoenequipo", "#lider"}},
}

// CallsToAction is the pool GenerateCopy draws its CTA from.
var CallsToAction = []string{
	"💾 ¡Guarda esta publicación como referencia!",
	"📲 ¡Comparte con tu red!",
	"💬 ¡Comenta tus pensamientos abajo!",
	"👆 ¡Doble toque si estás de acuerdo!",
	"🔔 ¡Activa las notificaciones para más!",
}

// Caption lists the content of the first five concepts as numbered points.
func Caption(concepts []Concept) string {
	n := min(len(concepts), captionPoints)
	points := make([]string, n)
	for i := range n {
		points[i] = fmt.Sprintf("%d. %s", i+1, concepts[i].Content)
	}
	return fmt.Sprintf(captionTemplate, strings.Join(points, "\n\n"))
}

// Hashtags returns topic tags detected in text followed by the base tags,
// deduplicated in order and capped at 15.
func Hashtags(text string) []string {
	lower := strings.ToLower(text)
	var all []string
	for _, t := range topicHashtags {
		if strings.Contains(lower, t.keyword) {
			all = append(all, t.tags[:2]...)
		}
	}
	all = append(all, baseHashtags...)

	seen := make(map[string]bool, len(all))
	out := make([]string, 0, maxHashtags)
	for _, tag := range all {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
		if len(out) == maxHashtags {
			break
		}
	}
	return out
}

// GenerateCopy builds the caption, hashtags and a random call to action.
func GenerateCopy(concepts []Concept, text string) Copy {
	caption := Caption(concepts)
	tags := Hashtags(text)
	joined := strings.Join(tags, " ")
	return Copy{
		Caption:        caption,
		Hashtags:       joined,
		HashtagsList:   tags,
		CTA:            CallsToAction[rand.IntN(len(CallsToAction))],
		FullPost:       caption + "\n\n" + joined,
		CharacterCount: engine.RuneLen(caption) + engine.RuneLen(joined) + 2,
	}
}
