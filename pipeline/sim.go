package pipeline

import (
	"strings"
	"time"

	"github.com/hupe1980/agentstudio/core"
)

// streamSimulation replays the role's canned output one whitespace-split
// token at a time at the agent's configured synthetic rate.
func (r *run) streamSimulation(desc core.AgentDescriptor, acc *accumulator, emit emitFn) {
	tps := desc.Profile.TokensPerSec
	if tps <= 0 {
		tps = 40
	}
	delay := time.Duration(float64(time.Second) / tps)

	for _, word := range strings.Split(SimOutput(desc.Role), " ") {
		if !sleep(r.ctx, delay) {
			return
		}
		chunk := word + " "
		acc.addSim(chunk)
		if !emit(core.NewTokenEvent(desc.ID, chunk, acc.tokens, acc.tps())) {
			return
		}
	}
}

// SimOutput returns the deterministic canned output for a role.
func SimOutput(role core.Role) string {
	if out, ok := simOutputs[role]; ok {
		return out
	}
	return "Processing request... analysis complete. ✓"
}

var simOutputs = map[core.Role]string{
	core.RoleRouter: "Analyzing incoming request... Task classification in progress.\n\n" +
		"[ROUTING ENGINE]\n" +
		"  Input complexity : MODERATE\n" +
		"  Estimated tokens : ~1,200\n" +
		"  Parallelizable   : YES (2 branches)\n\n" +
		"[DECISION MATRIX]\n" +
		"  → Code Writer   (confidence: 94%) — code generation required\n" +
		"  → Analyzer      (confidence: 89%) — architecture review needed\n\n" +
		"[EXECUTION PLAN]\n" +
		"  Step 1 · Router      → classify & dispatch\n" +
		"  Step 2 · Coder       → generate implementation  ┐ PARALLEL\n" +
		"  Step 2 · Analyzer    → requirements analysis    ┘\n" +
		"  Step 3 · Validator   → quality & security checks\n" +
		"  Step 4 · Synthesizer → merge & deliver\n\n" +
		"Dispatching to specialist agents. Pipeline initialized. ✓",

	core.RoleCoder: "Generating implementation...\n\n" +
		"```python\n" +
		"from fastapi import FastAPI, HTTPException, Depends\n" +
		"from fastapi.security import OAuth2PasswordBearer, OAuth2PasswordRequestForm\n" +
		"from pydantic import BaseModel\n" +
		"from datetime import datetime, timedelta\n" +
		"from typing import Optional\n" +
		"import jwt\n\n" +
		"app = FastAPI(title=\"Auth API\", version=\"1.0.0\")\n" +
		"SECRET_KEY = \"change-me-in-production\"\n" +
		"ALGORITHM  = \"HS256\"\n\n" +
		"class Token(BaseModel):\n" +
		"    access_token: str\n" +
		"    token_type: str\n\n" +
		"oauth2_scheme = OAuth2PasswordBearer(tokenUrl=\"token\")\n\n" +
		"def create_access_token(data: dict, expires: Optional[timedelta] = None) -> str:\n" +
		"    payload = data.copy()\n" +
		"    payload[\"exp\"] = datetime.utcnow() + (expires or timedelta(minutes=30))\n" +
		"    return jwt.encode(payload, SECRET_KEY, algorithm=ALGORITHM)\n\n" +
		"@app.post(\"/auth/login\", response_model=Token)\n" +
		"async def login(form: OAuth2PasswordRequestForm = Depends()):\n" +
		"    token = create_access_token({\"sub\": form.username})\n" +
		"    return {\"access_token\": token, \"token_type\": \"bearer\"}\n" +
		"```\n" +
		"Implementation complete. ✓",

	core.RoleAnalyzer: "Deep analysis initiated... [RUNNING IN PARALLEL WITH CODER]\n\n" +
		"[SECURITY REVIEW]\n" +
		"  ✓ JWT signing       : HS256 (consider RS256 for distributed systems)\n" +
		"  ✓ Token expiry      : 30 min (RFC 6749 §4.1.4 compliant)\n" +
		"  ⚠ Refresh tokens    : not implemented → session expiry risk\n" +
		"  ⚠ Rate limiting     : absent on /auth/login → brute-force vector\n\n" +
		"[ARCHITECTURE ASSESSMENT]\n" +
		"  Pattern       : OAuth2 Password Flow\n" +
		"  Scalability   : Stateless JWT — horizontally scalable ✓\n" +
		"  Performance   : Login P99 ~45ms | Token verify ~0.3ms\n\n" +
		"Recommendations forwarded to Validator & Synthesizer. ✓",

	core.RoleValidator: "Running validation suite...\n\n" +
		"[CODE QUALITY]   Score: 94 / 100\n" +
		"  ✓ Type hints        : complete\n" +
		"  ✓ Error handling    : HTTPException with codes\n" +
		"  ✗ Rate limiting absent          → WARN: add slowapi\n" +
		"  ✗ No account lockout mechanism  → WARN: add Redis counter\n\n" +
		"[SECURITY SCAN]\n" +
		"  ✓ No plaintext passwords stored\n" +
		"  ✓ No SQL injection vectors\n\n" +
		"[VERDICT]   APPROVED ✓\n" +
		"Proceed with recommended hardening before production.",

	core.RoleSynthesizer: "Synthesizing outputs from all agents...\n\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n" +
		"  FINAL SYNTHESIS REPORT\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n" +
		"FastAPI JWT Auth — production-ready implementation generated.\n\n" +
		"Security Score : 94 / 100  ·  Code Quality: 94 / 100\n\n" +
		"Parallel analysis completed:\n" +
		"  Coder    → implementation generated (JWT + OAuth2)\n" +
		"  Analyzer → security & architecture reviewed simultaneously\n\n" +
		"Priority Actions:\n" +
		"  [HIGH]   Add /auth/refresh endpoint\n" +
		"  [HIGH]   Implement rate limiting (slowapi, 5 req/min)\n" +
		"  [MEDIUM] Switch to RS256 for multi-service deployments\n\n" +
		"Pipeline complete. All agents finished successfully. ✓\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━",
}
