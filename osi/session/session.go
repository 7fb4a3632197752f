package session

import (
	"errors"
	"fmt"
)

// SPDUType различает типы Session Protocol Data Unit.
type SPDUType byte

const (
	SessionSPDUTypeConnect     SPDUType = 0x0D
	SessionSPDUTypeAccept      SPDUType = 0x0E
	SessionSPDUTypeGiveTokens  SPDUType = 0x01
	SessionSPDUTypeDataTransfer SPDUType = 0x01 // тот же код (DT), отличается параметрами
	SessionSPDUTypeFinish      SPDUType = 0x09
	SessionSPDUTypeDisconnect  SPDUType = 0x0A
)

// SessionPDU представляет разобранный Session SPDU.
type SessionPDU struct {
	Type                   SPDUType
	Length                 int
	ProtocolOptions        byte
	ProtocolVersion        byte
	SessionRequirement     uint16
	CallingSessionSelector []byte
	CalledSessionSelector  []byte
	Data                   []byte
}

func (s *SessionPDU) String() string {
	return fmt.Sprintf("SessionPDU{Type: 0x%02x, Length: %d, SessionRequirement: 0x%04x, DataLen: %d}",
		byte(s.Type), s.Length, s.SessionRequirement, len(s.Data))
}

// readSessionLength разбирает длину по правилам Session Protocol: короткая форма
// используется для значений до 255 (в отличие от BER, где порог 127), длинная
// форма (0x82 + 2 байта) только для значений свыше 255.
func readSessionLength(buffer []byte, pos int) (length int, newPos int, err error) {
	if pos >= len(buffer) {
		return 0, pos, errors.New("session length: buffer too short")
	}
	b := buffer[pos]
	if b == 0x82 {
		if pos+3 > len(buffer) {
			return 0, pos, errors.New("session length: truncated long form")
		}
		length = int(buffer[pos+1])<<8 | int(buffer[pos+2])
		return length, pos + 3, nil
	}
	return int(b), pos + 1, nil
}

// ParseSessionSPDU разбирает Session SPDU, начиная с байта типа SPDU
// (без заголовков TPKT и COTP, как отдаёт cotp.Connection.GetPayload).
func ParseSessionSPDU(buffer []byte) (*SessionPDU, error) {
	if len(buffer) < 2 {
		return nil, errors.New("session SPDU too short")
	}

	pdu := &SessionPDU{Type: SPDUType(buffer[0])}

	length, pos, err := readSessionLength(buffer, 1)
	if err != nil {
		return nil, err
	}
	pdu.Length = length

	end := pos + length
	if end > len(buffer) {
		return nil, fmt.Errorf("session SPDU truncated: need %d, have %d", end, len(buffer))
	}

	for pos < end {
		if pos+1 > len(buffer) {
			return nil, errors.New("session parameter header truncated")
		}
		paramType := buffer[pos]
		pos++

		paramLen, newPos, err := readSessionLength(buffer, pos)
		if err != nil {
			return nil, err
		}
		pos = newPos

		if pos+paramLen > len(buffer) {
			return nil, fmt.Errorf("session parameter 0x%02x overruns buffer", paramType)
		}
		value := buffer[pos : pos+paramLen]

		switch paramType {
		case 0x05: // Connect/Accept Item
			if err := parseConnectAcceptItem(value, pdu); err != nil {
				return nil, err
			}
		case 0x14: // Session Requirement
			if len(value) >= 2 {
				pdu.SessionRequirement = uint16(value[0])<<8 | uint16(value[1])
			}
		case 0x33: // Calling Session Selector
			pdu.CallingSessionSelector = append([]byte(nil), value...)
		case 0x34: // Called Session Selector
			pdu.CalledSessionSelector = append([]byte(nil), value...)
		case 0xC1: // Session user data
			pdu.Data = append([]byte(nil), value...)
		}

		pos += paramLen
	}

	return pdu, nil
}

// parseConnectAcceptItem разбирает вложенные параметры Connect/Accept Item
// (Protocol Options, Version Number).
func parseConnectAcceptItem(value []byte, pdu *SessionPDU) error {
	pos := 0
	for pos < len(value) {
		if pos+1 > len(value) {
			return errors.New("connect accept item truncated")
		}
		subType := value[pos]
		pos++
		subLen, newPos, err := readSessionLength(value, pos)
		if err != nil {
			return err
		}
		pos = newPos
		if pos+subLen > len(value) {
			return errors.New("connect accept sub-parameter overruns buffer")
		}
		sub := value[pos : pos+subLen]

		switch subType {
		case 0x13: // Protocol Options
			if len(sub) >= 1 {
				pdu.ProtocolOptions = sub[0]
			}
		case 0x16: // Version Number
			if len(sub) >= 1 {
				pdu.ProtocolVersion = sub[0]
			}
		}

		pos += subLen
	}
	return nil
}

// BuildDataTransferWithTokens создаёт пару Give Tokens SPDU + Data Transfer SPDU,
// как требует полнодуплексный режим ISO 8327 при передаче данных пользователя
// после установления соединения ("0100 0100 <presentation>").
func BuildDataTransferWithTokens(userData []byte) []byte {
	spdu := make([]byte, 0, 4+len(userData))

	// Give Tokens SPDU: type 1, length 0 (нет параметров)
	spdu = append(spdu, 0x01, 0x00)

	// Data Transfer SPDU: type 1, length 0, за ним пользовательские данные
	spdu = append(spdu, 0x01, 0x00)
	spdu = append(spdu, userData...)

	return spdu
}

// BuildConnectSPDU создаёт CONNECT SPDU (Session Protocol Data Unit).
// Возвращает захардкоженный CONNECT SPDU.
func BuildConnectSPDU(userData []byte) []byte {
	// Структура CONNECT SPDU:
	// SPDU Type: CONNECT (CN) SPDU (13) | Length: 178
	// 0d b2
	// Connect Accept Item
	// Parameter type: Connect Accept Item (5) | Parameter length: 6
	// Protocol Options: Parameter type: Protocol Options (19) | Parameter length: 1 | Flags: 0x00
	// Version Number: Parameter type: Version Number (22) | Parameter length: 1 | Flags: 0x02, Protocol Version 2
	// 05 06 13 01 00 16 01 02
	// Session Requirement
	// Parameter type: Session Requirement (20)
	// Parameter length: 2
	// Flags: 0x0002, Duplex functional unit
	// 14 02 00 02
	// Calling Session Selector
	// Parameter type: Calling Session Selector (51)
	// Parameter length: 2
	// Calling Session Selector: 0001
	// 33 02 00 01
	// Called Session Selector
	// Parameter type: Called Session Selector (52)
	// Parameter length: 2
	// Called Session Selector: 0001
	// 34 02 00 01
	// Session user data
	// Parameter type: Session user data (193)
	// Parameter length: <длина userData>
	// c1 <length> <userData>

	spdu := []byte{}

	// SPDU Type: CONNECT (CN) = 0x0D
	spdu = append(spdu, 0x0D)

	// Вычисляем общую длину SPDU
	// Connect Accept Item: 8 байт (05 06 13 01 00 16 01 02)
	// Session Requirement: 4 байта (14 02 00 02)
	// Calling Session Selector: 4 байта (33 02 00 01)
	// Called Session Selector: 4 байта (34 02 00 01)
	// Session user data: 2 байта заголовок + длина userData
	fixedPartLength := 8 + 4 + 4 + 4 + 2 + len(userData)
	totalLength := fixedPartLength

	// Добавляем длину Session SPDU
	// ПРИМЕЧАНИЕ: В Session Protocol длина кодируется в коротком формате для значений <= 255
	// Согласно дампу из Wireshark: 0d b2 (длина 178 в коротком формате, хотя 178 >= 128)
	// Это особенность Session Protocol - короткий формат используется до 255, а не до 127
	if totalLength <= 0xFF {
		spdu = append(spdu, byte(totalLength))
	} else {
		// Для длин > 255 используем длинный формат
		spdu = append(spdu, 0x82, byte(totalLength>>8), byte(totalLength&0xFF))
	}

	// Connect Accept Item
	spdu = append(spdu, 0x05, 0x06, 0x13, 0x01, 0x00, 0x16, 0x01, 0x02)

	// Session Requirement
	spdu = append(spdu, 0x14, 0x02, 0x00, 0x02)

	// Calling Session Selector
	spdu = append(spdu, 0x33, 0x02, 0x00, 0x01)

	// Called Session Selector
	spdu = append(spdu, 0x34, 0x02, 0x00, 0x01)

	// Session user data
	// ПРИМЕЧАНИЕ: В Session Protocol длина параметра кодируется в коротком формате
	// даже для значений >= 128 (в отличие от BER, где используется длинный формат)
	// Согласно дампу из Wireshark: c1 9c (длина 156 в коротком формате)
	spdu = append(spdu, 0xC1) // Parameter type: Session user data (193)
	// Используем короткий формат для длины (как в дампе из Wireshark)
	if len(userData) <= 0xFF {
		spdu = append(spdu, byte(len(userData)))
	} else {
		// Для длин > 255 используем длинный формат
		spdu = append(spdu, 0x82, byte(len(userData)>>8), byte(len(userData)&0xFF))
	}
	spdu = append(spdu, userData...)

	return spdu
}

