package cpu

// operand abstracts the destination of an 8-bit register-or-memory access.
// Seven of the eight register-field encodings (000-101,111) name a Chip
// field directly; the eighth (110) names memory[HL]. Centralizing the two
// behind one Get/Set pair keeps every opcode handler that takes a "reg or M"
// operand (MOV, INR, DCR, MVI, the ALU reg-group) free of that branch.
type operand struct {
	ptr  *uint8
	p    *Chip
	addr uint16
}

func (o operand) Get() uint8 {
	if o.ptr != nil {
		return *o.ptr
	}
	return o.p.ram.Read(o.addr)
}

func (o operand) Set(v uint8) {
	if o.ptr != nil {
		*o.ptr = v
		return
	}
	o.p.ram.Write(o.addr, v)
}

// reg decodes a 3-bit register field: 0=B 1=C 2=D 3=E 4=H 5=L 6=M(HL) 7=A.
func (p *Chip) reg(idx uint8) operand {
	switch idx & 7 {
	case 0:
		return operand{ptr: &p.B}
	case 1:
		return operand{ptr: &p.C}
	case 2:
		return operand{ptr: &p.D}
	case 3:
		return operand{ptr: &p.E}
	case 4:
		return operand{ptr: &p.H}
	case 5:
		return operand{ptr: &p.L}
	case 6:
		return operand{p: p, addr: p.hl()}
	default:
		return operand{ptr: &p.A}
	}
}

// getRP/setRP decode the 2-bit register-pair field used by LXI, INX, DCX and
// DAD: 0=BC 1=DE 2=HL 3=SP. PUSH/POP use the same field but repurpose index
// 3 to mean the PSW rather than SP, so they're handled separately below.
func (p *Chip) getRP(idx uint8) uint16 {
	switch idx & 3 {
	case 0:
		return uint16(p.B)<<8 | uint16(p.C)
	case 1:
		return uint16(p.D)<<8 | uint16(p.E)
	case 2:
		return p.hl()
	default:
		return p.SP
	}
}

func (p *Chip) setRP(idx uint8, v uint16) {
	switch idx & 3 {
	case 0:
		p.B, p.C = uint8(v>>8), uint8(v)
	case 1:
		p.D, p.E = uint8(v>>8), uint8(v)
	case 2:
		p.setHL(v)
	default:
		p.SP = v
	}
}

func (p *Chip) hl() uint16 { return uint16(p.H)<<8 | uint16(p.L) }

func (p *Chip) setHL(v uint16) { p.H, p.L = uint8(v>>8), uint8(v) }

// push16/pop16 implement the predecrement/postincrement stack discipline
// common to PUSH, POP, CALL, RET and RST.
func (p *Chip) push16(v uint16) {
	p.SP--
	p.ram.Write(p.SP, uint8(v>>8))
	p.SP--
	p.ram.Write(p.SP, uint8(v))
}

func (p *Chip) pop16() uint16 {
	lo := p.ram.Read(p.SP)
	p.SP++
	hi := p.ram.Read(p.SP)
	p.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// flagsByte/setFlagsByte pack and unpack the Processor Status Word low byte
// pushed/popped alongside A by PUSH PSW / POP PSW: S Z 0 A 0 P 1 C.
func (p *Chip) flagsByte() uint8 {
	b := flagAlwaysSet
	if p.SF {
		b |= flagS
	}
	if p.ZF {
		b |= flagZ
	}
	if p.AF {
		b |= flagA
	}
	if p.PF {
		b |= flagP
	}
	if p.CF {
		b |= flagC
	}
	return b
}

func (p *Chip) setFlagsByte(b uint8) {
	p.SF = b&flagS != 0
	p.ZF = b&flagZ != 0
	p.AF = b&flagA != 0
	p.PF = b&flagP != 0
	p.CF = b&flagC != 0
}

// zsp sets the zero, sign and parity flags from a result byte, the common
// tail of every instruction in this architecture that touches them.
func (p *Chip) zsp(v uint8) {
	p.ZF = v == 0
	p.SF = v&0x80 != 0
	p.PF = evenParity(v)
}

func evenParity(v uint8) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}

func halfCarryAdd(a, b, carryIn uint8) bool {
	return (a&0xF)+(b&0xF)+carryIn > 0xF
}

func halfBorrowSub(a, b, borrowIn uint8) bool {
	return int16(a&0xF)-int16(b&0xF)-int16(borrowIn) < 0
}

// addToA and subFromA implement ADD/ADC and SUB/SBB respectively. Per the
// widened-arithmetic resolution in DESIGN.md (the carry-in is added in a
// 16-bit accumulator rather than folded into the 8-bit operand first), ADC
// A,r with r=0xFF and CF=1 produces the same flags as ADD A,r would for any
// other operand value that sums to 0x100, instead of silently losing the
// carry to an 8-bit wraparound of the operand.
func (p *Chip) addToA(v uint8, carryIn bool) {
	var ci uint8
	if carryIn {
		ci = 1
	}
	a := p.A
	sum := uint16(a) + uint16(v) + uint16(ci)
	p.CF = sum > 0xFF
	p.AF = halfCarryAdd(a, v, ci)
	p.A = uint8(sum)
	p.zsp(p.A)
}

func (p *Chip) subFromA(v uint8, borrowIn bool) {
	var bi uint8
	if borrowIn {
		bi = 1
	}
	a := p.A
	diff := int16(a) - int16(v) - int16(bi)
	p.CF = diff < 0
	p.AF = halfBorrowSub(a, v, bi)
	p.A = uint8(diff)
	p.zsp(p.A)
}

// cmp implements CMP/CPI: identical flag effects to SUB, but A is left
// unchanged.
func (p *Chip) cmp(v uint8) {
	a := p.A
	diff := int16(a) - int16(v)
	p.CF = diff < 0
	p.AF = halfBorrowSub(a, v, 0)
	p.zsp(uint8(diff))
}

func (p *Chip) ana(v uint8) {
	p.AF = (p.A|v)&0x08 != 0
	p.A &= v
	p.CF = false
	p.zsp(p.A)
}

func (p *Chip) xra(v uint8) {
	p.A ^= v
	p.AF = false
	p.CF = false
	p.zsp(p.A)
}

func (p *Chip) ora(v uint8) {
	p.A |= v
	p.AF = false
	p.CF = false
	p.zsp(p.A)
}

func (p *Chip) inr(o operand) {
	v := o.Get()
	res := v + 1
	p.AF = halfCarryAdd(v, 1, 0)
	o.Set(res)
	p.zsp(res)
}

func (p *Chip) dcr(o operand) {
	v := o.Get()
	res := v - 1
	p.AF = halfBorrowSub(v, 1, 0)
	o.Set(res)
	p.zsp(res)
}

func (p *Chip) rlc() {
	carry := p.A&0x80 != 0
	p.A <<= 1
	if carry {
		p.A |= 1
	}
	p.CF = carry
}

func (p *Chip) rrc() {
	carry := p.A&0x01 != 0
	p.A >>= 1
	if carry {
		p.A |= 0x80
	}
	p.CF = carry
}

func (p *Chip) ral() {
	oldCF := p.CF
	carry := p.A&0x80 != 0
	p.A <<= 1
	if oldCF {
		p.A |= 1
	}
	p.CF = carry
}

func (p *Chip) rar() {
	oldCF := p.CF
	carry := p.A&0x01 != 0
	p.A >>= 1
	if oldCF {
		p.A |= 0x80
	}
	p.CF = carry
}

func (p *Chip) dad(rp uint8) {
	sum := uint32(p.hl()) + uint32(p.getRP(rp))
	p.CF = sum > 0xFFFF
	p.setHL(uint16(sum))
}

// daa adjusts A to valid packed-BCD after an 8-bit binary add, the low
// nibble first and then the high nibble against the (possibly just-updated)
// low-nibble result, matching how the hardware composes the two adjustments.
func (p *Chip) daa() {
	if p.A&0x0F > 9 || p.AF {
		p.AF = (p.A&0x0F)+6 > 0x0F
		p.A += 6
	}
	if p.A>>4 > 9 || p.CF {
		p.CF = (p.A>>4)+6 > 0x0F
		p.A = (p.A>>4+6)<<4 | (p.A & 0x0F)
	}
	p.zsp(p.A)
}

// condition evaluates the 3-bit condition field (bits 5-3) shared by
// conditional JMP/CALL/RET and by RST's unconditional-by-construction field.
func (p *Chip) condition(op uint8) bool {
	switch (op >> 3) & 7 {
	case 0:
		return !p.ZF
	case 1:
		return p.ZF
	case 2:
		return !p.CF
	case 3:
		return p.CF
	case 4:
		return !p.PF
	case 5:
		return p.PF
	case 6:
		return !p.SF
	default:
		return p.SF
	}
}

func (p *Chip) call(addr uint16) {
	p.push16(p.PC)
	p.PC = addr
}

func (p *Chip) ret() {
	p.PC = p.pop16()
}

// rst is shared by the RST n opcode and by Interrupt. Per §4.5/§4.7 an
// interrupt arriving while EI is clear is dropped rather than queued.
func (p *Chip) rst(arg uint8) {
	if !p.EI {
		return
	}
	p.EI = false
	p.HLT = false
	p.call(uint16(arg))
}

func (p *Chip) doPush(rp uint8) {
	if rp == 3 {
		p.push16(uint16(p.A)<<8 | uint16(p.flagsByte()))
		return
	}
	p.push16(p.getRP(rp))
}

func (p *Chip) doPop(rp uint8) {
	v := p.pop16()
	if rp == 3 {
		p.A = uint8(v >> 8)
		p.setFlagsByte(uint8(v))
		return
	}
	p.setRP(rp, v)
}

// dispatch executes the single instruction identified by op, given the one
// or two bytes immediately following it in memory (read by Step regardless
// of whether this instruction needs them). pc is the address the opcode was
// fetched from; no handler below reads it, since immediates and direct
// addresses arrive as b1/b2. PC itself has already been advanced past the
// instruction by the caller.
func (p *Chip) dispatch(op uint8, pc uint16, b1, b2 uint8) {
	addr16 := uint16(b2)<<8 | uint16(b1)

	switch {
	case op&0xC0 == 0x40 && op != 0x76:
		// MOV dst,src
		p.reg((op >> 3) & 7).Set(p.reg(op & 7).Get())

	case op == 0x76:
		p.HLT = true

	case op&0xC0 == 0x80:
		// ADD|ADC|SUB|SBB|ANA|XRA|ORA|CMP A,r
		v := p.reg(op & 7).Get()
		p.aluOp((op>>3)&7, v)

	case op&0xC7 == 0x04:
		p.inr(p.reg((op >> 3) & 7))

	case op&0xC7 == 0x05:
		p.dcr(p.reg((op >> 3) & 7))

	case op&0xC7 == 0x06:
		p.reg((op >> 3) & 7).Set(b1)

	case op&0xCF == 0x01:
		p.setRP((op>>4)&3, addr16)

	case op&0xCF == 0x03:
		p.setRP((op>>4)&3, p.getRP((op>>4)&3)+1)

	case op&0xCF == 0x0B:
		p.setRP((op>>4)&3, p.getRP((op>>4)&3)-1)

	case op&0xCF == 0x09:
		p.dad((op >> 4) & 3)

	case op&0xE7 == 0x07:
		switch (op >> 3) & 3 {
		case 0:
			p.rlc()
		case 1:
			p.rrc()
		case 2:
			p.ral()
		default:
			p.rar()
		}

	case op == 0x02 || op == 0x12:
		// STAX B|D
		p.ram.Write(p.getRP((op>>4)&1), p.A)

	case op == 0x0A || op == 0x1A:
		// LDAX B|D
		p.A = p.ram.Read(p.getRP((op >> 4) & 1))

	case op == 0x22:
		// SHLD
		p.ram.Write(addr16, p.L)
		p.ram.Write(addr16+1, p.H)

	case op == 0x2A:
		// LHLD
		p.L = p.ram.Read(addr16)
		p.H = p.ram.Read(addr16 + 1)

	case op == 0x32:
		// STA
		p.ram.Write(addr16, p.A)

	case op == 0x3A:
		// LDA
		p.A = p.ram.Read(addr16)

	case op == 0x27:
		p.daa()

	case op == 0x2F:
		// CMA
		p.A = ^p.A

	case op == 0x37:
		// STC
		p.CF = true

	case op == 0x3F:
		// CMC
		p.CF = !p.CF

	case op&0xC7 == 0xC6:
		p.aluOp((op>>3)&7, b1)

	case op == 0xC9:
		p.ret()

	case op&0xC7 == 0xC0:
		if p.condition(op) {
			p.ret()
			p.Cycles += 6
		}

	case op&0xCF == 0xC1:
		p.doPop((op >> 4) & 3)

	case op&0xCF == 0xC5:
		p.doPush((op >> 4) & 3)

	case op == 0xC3:
		p.PC = addr16

	case op&0xC7 == 0xC2:
		if p.condition(op) {
			p.PC = addr16
		}

	case op == 0xCD:
		p.call(addr16)

	case op&0xC7 == 0xC4:
		if p.condition(op) {
			p.call(addr16)
			p.Cycles += 6
		}

	case op&0xC7 == 0xC7:
		p.rst(op & 0x38)

	case op == 0xEB:
		// XCHG
		p.H, p.D = p.D, p.H
		p.L, p.E = p.E, p.L

	case op == 0xE3:
		// XTHL
		lo := p.ram.Read(p.SP)
		hi := p.ram.Read(p.SP + 1)
		p.ram.Write(p.SP, p.L)
		p.ram.Write(p.SP+1, p.H)
		p.L, p.H = lo, hi

	case op == 0xF9:
		// SPHL
		p.SP = p.hl()

	case op == 0xE9:
		// PCHL
		p.PC = p.hl()

	case op == 0xF3:
		// DI
		p.EI = false

	case op == 0xFB:
		// EI
		p.EI = true

	case op == 0xDB:
		if p.portIn != nil {
			p.A = p.portIn.Input(b1)
		}

	case op == 0xD3:
		if p.portOut != nil {
			p.portOut.Output(b1, p.A)
		}

	default:
		// NOP, 0x00, and its seven undocumented aliases, plus the
		// undocumented JMP/RET/CALL aliases (0xCB, 0xD9, 0xDD, 0xED, 0xFD),
		// which execute as no-ops here.
	}
}

// aluOp dispatches the 3-bit group field shared by the ALU reg-group
// (0x80-0xBF) and the ALU immediate group (0xC6/CE/D6/DE/E6/EE/F6/FE).
func (p *Chip) aluOp(group uint8, v uint8) {
	switch group {
	case 0:
		p.addToA(v, false)
	case 1:
		p.addToA(v, p.CF)
	case 2:
		p.subFromA(v, false)
	case 3:
		p.subFromA(v, p.CF)
	case 4:
		p.ana(v)
	case 5:
		p.xra(v)
	case 6:
		p.ora(v)
	default:
		p.cmp(v)
	}
}
