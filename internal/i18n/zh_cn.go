package i18n

// ZhCNMessages 简体中文消息目录
// ZhCNMessages Simplified Chinese message catalog
var ZhCNMessages = map[string]string{
	// 视图
	"view.feed":       "碎片流",
	"view.planning":   "规划",
	"view.review":     "回顾",
	"view.brainstorm": "头脑风暴",

	// 状态
	"status.ready":         "就绪",
	"status.thinking":      "思考中...",
	"status.organizing":    "正在整理你的碎片...",
	"status.reviewing":     "正在撰写周回顾...",
	"status.brainstorming": "头脑风暴中...",
	"status.recording":     "正在聆听...",
	"status.interrupted":   "已取消",

	// 对话
	"chat.fallback":    "抱歉，由于网络波动，我暂时无法响应。请稍后再试。",
	"chat.cleared":     "对话已清空",
	"chat.interrupted": "（回复已取消）",
	"chat.you":         "你",
	"chat.lumina":      "Lumina",

	// 碎片
	"fragment.added":     "已记录 %s",
	"fragment.removed":   "已删除 %s",
	"fragment.not_found": "找不到碎片 %s",
	"fragment.toggled":   "%s 已切换为 %s",
	"fragment.status":    "%s 已标记为 %s",
	"fragment.empty":     "还没有任何碎片，输入一段想法即可记录。",
	"fragment.count":     "共 %d 条碎片",

	// AI 结果
	"planning.themes":        "主题",
	"planning.actions":       "行动项",
	"planning.opportunities": "潜在机会",
	"planning.summary":       "总结",
	"brainstorm.title":       "「%s」的延展方向",
	"review.title":           "周回顾",

	// 错误
	"error.gateway":    "AI 请求失败: %s",
	"error.validation": "%s",
	"error.storage":    "存储不可用，修改仅保存在内存中: %s",
	"error.config":     "配置错误: %s",

	// REPL
	"repl.welcome":         "Lumina 已就绪（模型服务: %s，碎片: %d）。输入 :help 查看命令。",
	"repl.bye":             "再见。",
	"repl.unknown_command": "未知命令: %s",
	"repl.usage":           "用法: %s",
	"repl.help": `命令:
  <文本> | :add <文本>   记录一条碎片
  :ls                    列出碎片
  :rm <id>               删除碎片
  :todo <id>             在碎片/待办之间切换
  :done <id>             将待办标记为完成
  :undo <id>             重新打开已完成的待办
  :organize              整理碎片为规划
  :review                生成周回顾
  :brainstorm <想法>     针对想法进行头脑风暴
  :chat <消息>           与助手对话
  :clear                 清空对话
  :record                模拟语音记录
  :cancel <类型>         取消 organize|review|brainstorm|chat
  :view <名称>           切换视图 feed|planning|review|brainstorm
  :quit                  退出`,

	// 录音
	"recording.done": "识别结果: %s",

	// 服务
	"server.listening": "Lumina API 监听于 %s",

	// TUI
	"tui.mode.capture":     "记录",
	"tui.mode.chat":        "对话",
	"tui.placeholder":      "输入一个想法并回车...",
	"tui.chat_placeholder": "向 Lumina 提问...",
	"tui.keys":             "tab 视图 · ctrl+t 模式 · ctrl+o 整理 · ctrl+r 回顾 · ctrl+b 风暴 · ctrl+v 录音 · esc 取消",
	"tui.no_planning":      "还没有规划。按 ctrl+o 整理碎片。",
	"tui.no_review":        "还没有回顾。按 ctrl+r 生成。",
	"tui.no_storm":         "输入一个想法后按 ctrl+b 开始头脑风暴。",
	"sidebar.provider":     "模型服务",
	"sidebar.fragments":    "碎片",
	"sidebar.todos":        "未完成待办",
	"sidebar.chat":         "对话",
}
