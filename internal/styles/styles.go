// Package styles holds the per-language prompt bases, role labels and the
// domain disclaimers appended during synthesis. Unknown languages fall back
// to 中文, the default response language.
package styles

import "github.com/xkilldash9x/sage-cli/api/schemas"

// DefaultLanguage is used when the caller supplied no (or an unknown)
// language tag.
const DefaultLanguage = "中文"

// Style bundles everything language-dependent about a response.
type Style struct {
	SystemBase        string
	MedicalDisclaimer string
	LegalDisclaimer   string
	UserLabel         string
	AssistantLabel    string
}

var table = map[string]Style{
	"中文": {
		SystemBase: `你是一位资深的技术专家和需求分析师。请以专业、详尽且友好的方式回答问题。

回答风格要求：
- 详尽解释：充分展开说明每个要点
- 结构清晰：使用标题、列表、代码块组织内容
- 专业准确：使用准确的技术术语
- 友好耐心：耐心详细地解释复杂概念
- 实例丰富：提供具体示例和代码片段

请确保回答完整、深入。`,
		MedicalDisclaimer: "\n\n⚠️ **医疗免责声明**\n以上信息仅供参考，不构成医疗建议。请咨询专业医疗机构。",
		LegalDisclaimer:   "\n\n⚠️ **法律免责声明**\n以上内容仅为一般性法律信息，不构成法律意见。请咨询执业律师。",
		UserLabel:         "用户",
		AssistantLabel:    "助手",
	},
	"日本語": {
		SystemBase: `あなたは経験豊富な技術専門家です。専門的で詳細、かつ親しみやすい口調でお答えください。

回答スタイル：
- 詳細な説明：各ポイントを十分に展開
- 明確な構造：見出し、リスト、コードブロックを活用
- 専門性と正確性：正確な技術用語を使用
- 丁寧で親切：複雑な概念も辛抱強く説明
- 豊富な実例：具体的な例を提供

ビジネス敬語を基調としつつ親しみやすく。`,
		MedicalDisclaimer: "\n\n⚠️ **医療に関する免責事項**\n上記情報は参考情報であり、医療アドバイスではありません。専門医にご相談ください。",
		LegalDisclaimer:   "\n\n⚠️ **法的事項の免責事項**\n上記は一般的な法律情報であり、法的助言ではありません。弁護士にご相談ください。",
		UserLabel:         "ユーザー",
		AssistantLabel:    "アシスタント",
	},
	"English": {
		SystemBase: `You are a senior technical expert. Respond professionally, comprehensively, and approachably.

Response Style:
- Comprehensive explanations
- Clear structure with headings and lists
- Professional accuracy
- Patient and thorough
- Rich examples`,
		MedicalDisclaimer: "\n\n⚠️ **Medical Disclaimer**\nInformation provided is for reference only, not medical advice. Consult healthcare professionals.",
		LegalDisclaimer:   "\n\n⚠️ **Legal Disclaimer**\nContent provides general legal information, not legal advice. Consult an attorney.",
		UserLabel:         "User",
		AssistantLabel:    "Assistant",
	},
}

// For returns the style for the language, falling back to the default.
func For(language string) Style {
	if s, ok := table[language]; ok {
		return s
	}
	return table[DefaultLanguage]
}

// Disclaimer returns the disclaimer the given domain requires in the given
// language, or "" for unregulated domains.
func Disclaimer(language string, domain schemas.Domain) string {
	s := For(language)
	switch domain {
	case schemas.DomainMedical:
		return s.MedicalDisclaimer
	case schemas.DomainLegal:
		return s.LegalDisclaimer
	default:
		return ""
	}
}
