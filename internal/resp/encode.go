package resp

import "github.com/tempuskv/tempuskv/internal/command"

// WriteReply encodes a command.Reply, recursing into nested arrays. It is
// the only place internal/resp knows about internal/command's Reply shape;
// everything else in this package is protocol-only.
func WriteReply(w *Writer, reply command.Reply) error {
	switch reply.Kind {
	case command.KindSimple:
		return w.WriteSimple(reply.Str)
	case command.KindError:
		return w.WriteError(reply.Err.Error())
	case command.KindInteger:
		return w.WriteInteger(reply.Int)
	case command.KindBulk:
		return w.WriteBulk(reply.Bulk)
	case command.KindNullBulk:
		return w.WriteNull()
	case command.KindNullArray:
		return w.WriteNullArray()
	case command.KindDouble:
		return w.WriteDouble(reply.Double)
	case command.KindArray:
		if err := w.WriteArrayHeader(len(reply.Array)); err != nil {
			return err
		}
		for _, item := range reply.Array {
			if err := WriteReply(w, item); err != nil {
				return err
			}
		}
		return nil
	default:
		// KindBlock never reaches the wire directly: internal/server
		// resolves it to a concrete Reply via BlockingHub before writing.
		return w.WriteError("ERR unexpected pending reply")
	}
}
