package signature

import "regexp"

// Signature is one class of dangerous content. Patterns are RE2 expressions,
// so matching time stays linear in the input length.
type Signature struct {
	ID          string
	Description string
	Tier        Tier
	Pattern     *regexp.Regexp
}

func mustSignature(id string, tier Tier, description, pattern string) *Signature {
	return &Signature{
		ID:          id,
		Description: description,
		Tier:        tier,
		Pattern:     regexp.MustCompile(pattern),
	}
}

// builtin is compiled once at init and never mutated afterwards.
var builtin = []*Signature{
	// --- Destructive filesystem operations ---
	mustSignature("rm_recursive_root", Critical,
		"Recursive file deletion targeting root or home directory",
		`\brm\s+(?:-\S+\s+)*-(?:[A-Za-z]*[rR][A-Za-z]*|-recursive)\s+(?:-\S+\s+)*(?:/\*?|~/?|\$HOME/?)(?:[\s;&|)"']|$)`),
	mustSignature("rm_recursive_force", High,
		"Recursive file deletion with rm -rf",
		`\brm\s+(?:-\S+\s+)*-(?:[A-Za-z]*(?:[rR][A-Za-z]*f|f[A-Za-z]*[rR])|-recursive)`),
	mustSignature("dd_block_device", Critical,
		"Raw write to block device with dd",
		`\bdd\b[^\n]*\bof=/dev/(?:sd|hd|vd|xvd|nvme|mmcblk|disk)`),
	mustSignature("mkfs_format", High,
		"Filesystem format command",
		`\bmkfs(?:\.[a-z0-9]+)?\s+\S`),
	mustSignature("fork_bomb", Critical,
		"Fork bomb",
		`:\s*\(\s*\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
	mustSignature("chmod_world_writable", High,
		"Recursive world-writable permission change",
		`\bchmod\s+(?:-\S+\s+)*-[A-Za-z]*R[A-Za-z]*\s+(?:0?777|a\+rwx|ugo\+rwx)\b`),

	// --- Remote code execution ---
	mustSignature("pipe_to_shell", Critical,
		"Remote script execution via download piped to shell",
		`\b(?:curl|wget)\b[^|\n]*\|\s*(?:sudo\s+(?:-\S+\s+)*)?(?:(?:ba|z|k|da|fi)?sh|python[23]?|perl|ruby|node)\b`),
	mustSignature("process_substitution", High,
		"Remote code execution via process substitution",
		`<\(\s*(?:curl|wget|nc)\b`),
	mustSignature("eval_download", Critical,
		"Evaluation of downloaded content via command substitution",
		`\b(?:eval|(?:ba|z)?sh\s+-c)\s+["']?\$\(\s*(?:curl|wget)\b`),
	mustSignature("base64_to_shell", High,
		"Base64-decoded payload piped to shell",
		`\bbase64\s+(?:-d|-D|--decode)\b[^\n]*\|\s*(?:sudo\s+)?(?:ba|z)?sh\b`),
	mustSignature("interpreter_remote_code", High,
		"Interpreter one-liner fetching remote code",
		`\b(?:python[23]?|perl|ruby|node)\s+-[ce]\s+[^\n]*(?:urlopen|urllib|requests\.get|http\.get|LWP::|open-uri|Net::HTTP)`),

	// --- Reverse shells ---
	mustSignature("dev_tcp_shell", Critical,
		"Reverse shell via /dev/tcp or /dev/udp",
		`/dev/(?:tcp|udp)/[A-Za-z0-9.\-]+/[0-9]+`),
	mustSignature("netcat_exec", Critical,
		"Netcat spawning a shell",
		`\b(?:nc|ncat|netcat)\b[^\n|]*\s-(?:[A-Za-z]*e|c)\s*\S*(?:sh|bash|cmd)\b`),

	// --- Credentials and privilege ---
	mustSignature("ssh_key_access", High,
		"Access to SSH private keys or authorized_keys",
		`\.ssh/(?:id_(?:rsa|dsa|ecdsa|ed25519)|authorized_keys)\b`),
	mustSignature("cloud_credentials", High,
		"Access to cloud credential files",
		`\.aws/credentials|\.config/gcloud/|\.kube/config|\.azure/(?:accessTokens|msal_token_cache)`),
	mustSignature("system_auth_files", High,
		"Access to system password or sudoers files",
		`/etc/(?:shadow|gshadow|sudoers)\b`),
	mustSignature("sudoers_nopasswd", Critical,
		"Passwordless sudo grant",
		`NOPASSWD\s*:\s*ALL`),

	// --- Evasion and persistence ---
	mustSignature("disable_security", High,
		"Attempt to disable host security controls",
		`\b(?:setenforce\s+0|ufw\s+disable|iptables\s+-F|systemctl\s+(?:stop|disable|mask)\s+(?:firewalld|apparmor|auditd|ufw))\b`),
	mustSignature("history_tamper", Medium,
		"Shell history tampering",
		`\bhistory\s+-c\b|\bunset\s+HISTFILE\b|\bHISTFILE=/dev/null|\bHISTSIZE=0\b`),
	mustSignature("cron_persistence", Medium,
		"Persistence via scheduled task modification",
		`\bcrontab\s+-(?:r|e)?(?:\s|$)|/etc/cron(?:tab\b|\.(?:d|daily|hourly|weekly|monthly)/)`),
	mustSignature("kill_all_processes", Medium,
		"Termination of all user processes",
		`\bkill\s+-(?:9|KILL|SIGKILL)\s+-1(?:\s|$)`),

	// --- Exfiltration ---
	mustSignature("http_file_upload", Medium,
		"Local file upload over HTTP (possible exfiltration)",
		`\bcurl\b[^\n|]*\s(?:(?:-d|--data(?:-binary|-urlencode)?)\s*@|(?:-F|--form)\s*\S+=@|(?:-T|--upload-file)\s+)\S`),

	// --- Prompt injection carried in arguments ---
	mustSignature("instruction_override", High,
		"Instruction override language in tool arguments",
		`(?i)(?:\b(?:ignore|disregard|forget)\s+(?:all\s+)?(?:previous|prior|above|your)\s+(?:previous\s+)?(?:instructions?|rules?|guidelines?)|\byou\s+are\s+now\s+(?:free|unrestricted|unfiltered)|<\|im_start\|>system|\[INST\])`),
	mustSignature("invisible_unicode", Medium,
		"Invisible or bidirectional Unicode characters",
		`[\x{200B}-\x{200F}\x{202A}-\x{202E}\x{2060}\x{2066}-\x{2069}\x{FEFF}\x{E0001}-\x{E007F}]`),

	// --- Low-risk but notable ---
	mustSignature("git_force_push", Low,
		"Force push overwriting remote history",
		`\bgit\s+push\b[^\n]*\s(?:-f|--force)(?:\s|$)`),
}

// Catalogue returns a copy of the built-in signatures in evaluation order.
func Catalogue() []Signature {
	out := make([]Signature, len(builtin))
	for i, s := range builtin {
		out[i] = *s
	}
	return out
}

// Lookup returns the built-in signature with the given ID.
func Lookup(id string) (Signature, bool) {
	for _, s := range builtin {
		if s.ID == id {
			return *s, true
		}
	}
	return Signature{}, false
}
