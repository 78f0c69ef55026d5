// Package knowledge holds the canned answers served when the assistant
// endpoint is unreachable. Matching is pure and deterministic: the topic
// table is scanned in order and the first keyword hit wins, so table order
// is the priority order.
package knowledge

import "strings"

// Reply is one canned answer from the offline knowledge base.
type Reply struct {
	Topic string
	Text  string
}

// Topic pairs a keyword set with its pre-authored answer.
type Topic struct {
	Name     string
	Keywords []string
	Answer   string
}

// topics is scanned first to last; earlier entries take precedence.
var topics = []Topic{
	{
		Name:     "url-scanner",
		Keywords: []string{"url", "link", "scanner"},
		Answer: `**URL Scanner** checks a link before you click it.

Open the URL Scanner page, paste the full address (including ` + "`https://`" + `) and run the scan. The report covers:

- Domain age and WHOIS registration details
- SSL certificate validity
- Known blocklist and reputation hits

> Tip: hover over a link to preview its real destination before scanning it.

A high risk score does not always mean a site is malicious, but treat anything flagged as suspicious with care.`,
	},
	{
		Name:     "phishing",
		Keywords: []string{"phish", "scam", "spam"},
		Answer: `**Phishing** is an attack that impersonates someone you trust to steal credentials or money.

Common warning signs:

- Urgent language pushing you to act *right now*
- Sender address that almost, but not quite, matches the real one
- Links whose visible text differs from the real destination
- Unexpected attachments or requests for passwords

> Tip: run any suspicious link through the URL Scanner and paste raw email headers into the Email Analyzer.

When in doubt, contact the supposed sender through a channel you already trust, never by replying.`,
	},
	{
		Name:     "passwords",
		Keywords: []string{"password", "account", "2fa", "protect"},
		Answer: `Strong account protection comes down to three habits:

1. Use a **unique** password per site, ideally from a password manager
2. Prefer length over complexity — a passphrase like ` + "`correct-horse-battery-staple`" + ` beats ` + "`P@ssw0rd!`" + `
3. Turn on **two-factor authentication** (2FA) everywhere it is offered

> Tip: the Password Strength page estimates how long a real cracker would need for your password.

Never reuse the password of your primary email account anywhere else; it is the key to all your resets.`,
	},
	{
		Name:     "certifications",
		Keywords: []string{"cert", "cissp", "oscp", "security+"},
		Answer: `Popular security certifications, roughly in career order:

1. **CompTIA Security+** — the usual entry point, vendor-neutral fundamentals
2. **CEH** — certified ethical hacker, breadth over depth
3. **OSCP** — hands-on offensive security, respected for its practical exam
4. **CISSP** — management-level, requires five years of experience

Pick based on the role you want: blue-team and compliance roles lean CISSP/Security+, offensive roles lean OSCP.

> Tip: free platforms like TryHackMe and Hack The Box are a good way to test interest before paying for an exam.`,
	},
	{
		Name:     "careers",
		Keywords: []string{"job", "salary", "career", "role"},
		Answer: `Cybersecurity roles split broadly into a few tracks:

- **SOC analyst** — monitoring and triage, the most common entry job
- **Penetration tester** — offensive assessments, usually needs OSCP-level skills
- **Security engineer** — building and hardening infrastructure
- **GRC / compliance** — governance, audits, policy

Entry salaries vary by region, but security consistently pays above general IT.

> Tip: home labs and CTF write-ups count for more than most people expect in interviews.

Start with fundamentals (networking, one scripting language, Linux) and specialize from there.`,
	},
	{
		Name:     "image-forensics",
		Keywords: []string{"image", "forensic", "fake", "ai-generated"},
		Answer: `**Image Analyzer** inspects a picture for signs of manipulation.

What it looks at:

- EXIF metadata (camera, timestamps, GPS, editing software traces)
- Compression artifacts that hint at re-saving or splicing
- Statistical patterns common in AI-generated images

> Tip: metadata is stripped by most social networks, so a missing EXIF block alone proves nothing.

No automated check is conclusive; treat the result as one signal among several.`,
	},
}

// general is returned when no topic keyword matches.
const general = `I'm the NeoTrace assistant. I can help you with:

- **Scanning tools** — URL Scanner, Phone Lookup, Image Analyzer, Email Analyzer
- **Security basics** — phishing, passwords, 2FA, safe browsing
- **Learning paths** — certifications and cybersecurity careers

Ask me about any of these, or open a tool page and ask about your results there.`

// Match maps free text to the best-fit canned answer. Same input always
// yields the same output.
func Match(query string) Reply {
	q := strings.ToLower(query)
	for _, t := range topics {
		for _, kw := range t.Keywords {
			if strings.Contains(q, kw) {
				return Reply{Topic: t.Name, Text: t.Answer}
			}
		}
	}
	return Reply{Topic: "general", Text: general}
}

// Topics exposes the table for inspection; the returned slice must not be
// modified.
func Topics() []Topic {
	return topics
}
