package packet

// Client opcodes.
const (
	C_LOGIN        byte = 0x0A
	C_LOGOUT       byte = 0x14
	C_PING         byte = 0x1E
	C_USE_ITEM     byte = 0x82
	C_SAY          byte = 0x96
	C_HOUSE_WINDOW byte = 0x9B
)

// Server opcodes.
const (
	S_SELF_APPEAR     byte = 0x0A
	S_LOGIN_ERROR     byte = 0x14
	S_PING            byte = 0x1E
	S_MAP_DESCRIPTION byte = 0x64
	S_ADD_THING       byte = 0x6A
	S_TRANSFORM_THING byte = 0x6B
	S_REMOVE_THING    byte = 0x6C
	S_MOVE_CREATURE   byte = 0x6D
	S_MAGIC_EFFECT    byte = 0x83
	S_HOUSE_WINDOW    byte = 0x97
	S_TEXT_MESSAGE    byte = 0xB4
)

// Text message classes for S_TEXT_MESSAGE.
const (
	MsgStatusConsole byte = 0x11
	MsgLogin         byte = 0x13
	MsgInfoDesc      byte = 0x16
	MsgStatusSmall   byte = 0x17
)
