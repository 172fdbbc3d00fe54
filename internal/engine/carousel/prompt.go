package carousel

// LLM and image prompt templates: data only, no logic.

// conceptsPrompt asks for slideCount concepts as JSON.
// Args: slide count, transcript prefix.
const conceptsPrompt = `Eres un experto en crear contenido para carruseles de Instagram. Analiza este transcript de un video de YouTube y extrae los %d conceptos más importantes y valiosos.

Para cada concepto genera:
1. Un TÍTULO impactante y llamativo (máximo 6 palabras, sin emojis)
2. Un CONTENIDO rico y detallado que incluya:
   - El punto clave o tip específico
   - Datos, estadísticas o ejemplos cuando existan
   - Beneficios concretos o resultados esperados
   (mínimo 150, máximo 250 caracteres)

REGLAS CRÍTICAS:
- El contenido debe ser ESPECÍFICO y ACCIONABLE, no genérico
- Incluye números, porcentajes o datos cuando el video los mencione
- Si el video da tips o pasos, describe cada uno claramente
- NO uses frases vagas como "es importante" o "debes considerar"
- Escribe en el MISMO idioma del transcript
- Evita repetir información entre slides

Transcript:
%s

Responde ÚNICAMENTE con JSON válido (sin markdown, sin backticks):
{"concepts":[{"title":"...", "content":"..."}]}`

// coverTitlePrompt turns a video title into a cover headline.
// Args: video title.
const coverTitlePrompt = `Genera un título atractivo para la portada de un carrusel de Instagram basado en este título de video:
"%s"

Requisitos:
- Máximo 8 palabras
- Atractivo y que genere curiosidad
- En el MISMO idioma que el original
- Sin emojis ni caracteres especiales
- Sin comillas

Responde SOLO con el título, nada más.`

// coverSlidePrompt describes the cover image.
// Args: theme, title.
const coverSlidePrompt = `A professional social media carousel cover image, portrait format (3:4 aspect ratio).

Visual elements:
- Modern dark gradient background with deep navy blue and subtle purple tones
- Abstract geometric shapes and soft glowing accents in coral and cyan colors
- Professional, minimal design with plenty of negative space
- Elegant typography-style composition

The image should evoke the theme: "%s"

Include the text "%s" as the main title, displayed in large, bold, modern white sans-serif font, centered.
Below the title, include smaller text "Swipe to explore →" in a muted gray color.

Style: Premium editorial design, modern and sleek, similar to high-end marketing materials. Clean, sophisticated, museum-quality aesthetic.`

// contentSlidePrompt describes one numbered content slide.
// Args: padded number, title, content, progress percent, slide number, total.
const contentSlidePrompt = `A professional social media carousel content slide, portrait format (3:4 aspect ratio).

Visual design:
- Dark gradient background transitioning from deep navy (#1a1a2e) to darker blue (#0f3460)
- Clean, minimal layout with ample white space
- Subtle geometric accent elements in coral color (#e94560)

Text content to display:
- Large number "%s" in coral color (#e94560), bold font, positioned in upper left area
- Title: "%s" in white, bold, medium-large size font below the number
- Body text: "%s" in light gray color, smaller readable font, centered

Include a thin progress bar at the bottom showing %d%% progress in coral-to-orange gradient.
Include "%d/%d" as small text in the bottom right corner.

Style: Consistent with a premium Instagram carousel series. Editorial quality, clean typography, professional presentation.`

// styledSlidePrompt is the short per-style variant of a slide prompt.
// Args: style guide, title, slide number, total.
const styledSlidePrompt = `Instagram carousel slide, %s. Title: "%s". Key message displayed prominently. Slide %d of %d. Professional social media content, 1080x1350 pixels, portrait orientation. Text should be large and readable. High quality, polished design.`

// captionTemplate wraps the numbered key points.
// Args: numbered points.
const captionTemplate = `✨ ¡Desliza para ver las ideas clave! ✨

%s

💡 ¡Guarda esta publicación para después!
👉 Comparte con alguien que necesite ver esto

¿Qué punto te resonó más? ¡Déjalo en los comentarios! 👇

---
📌 Síguenos para más contenido valioso
🔄 Comparte para ayudar a otros a aprender`
