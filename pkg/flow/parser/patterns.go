package parser

// tagPatterns is one row of a classification table. Table order is the
// tie-break: earlier rows win equal scores.
type tagPatterns struct {
	tag      string
	patterns []string
}

var intentPatterns = []tagPatterns{
	{"greeting", []string{
		`你好`, `\bhello\b`, `\bhi\b`, `嗨`, `早上好`, `下午好`, `晚上好`,
		`\bhow are you\b`, `\bhey\b`,
	}},
	{"question", []string{
		`什么`, `怎么`, `为什么`, `哪里`, `什么时候`, `\bwho\b`, `\bwhat\b`,
		`\bhow\b`, `\bwhy\b`, `\bwhere\b`, `\bwhen\b`, `？`, `\?`,
	}},
	{"request", []string{
		`请`, `帮我`, `可以`, `能否`, `\bplease\b`, `\bhelp me\b`,
		`\bcan you\b`, `\bcould you\b`, `告诉我`, `\btell me\b`, `\bgive me\b`,
	}},
	{"complaint", []string{
		`不好`, `讨厌`, `烦`, `抱怨`, `\bbad\b`, `\bhate\b`, `\bannoying\b`,
		`问题`, `错误`, `\bbug\b`, `\bissue\b`, `\bproblem\b`,
	}},
	{"praise", []string{
		`好`, `棒`, `赞`, `厉害`, `优秀`, `\bgood\b`, `\bgreat\b`,
		`\bexcellent\b`, `\bawesome\b`, `喜欢`, `\blove\b`, `\blike\b`,
	}},
	{"story_request", []string{
		`故事`, `讲个`, `编个`, `\bstory\b`, `\btell a story\b`, `小说`,
		`\bnovel\b`, `\bfiction\b`,
	}},
	{"creative_request", []string{
		`创作`, `创意`, `想象`, `\bcreative\b`, `\bimagine\b`, `\bcreate\b`,
		`\bdesign\b`, `写诗`, `\bpoem\b`, `诗歌`, `画画`, `\bdraw\b`,
	}},
	{"information_request", []string{
		`信息`, `资料`, `数据`, `\binformation\b`, `\bdata\b`, `\bknowledge\b`,
		`解释`, `\bexplain\b`, `\bdescribe\b`, `介绍`, `\bintroduce\b`,
	}},
	{"emotional_support", []string{
		`难过`, `伤心`, `沮丧`, `\bsad\b`, `\bdepressed\b`, `\bupset\b`,
		`安慰`, `\bcomfort\b`, `\bsupport\b`,
	}},
	{"topic_change", []string{
		`换个话题`, `说点别的`, `\bchange topic\b`, `\banother subject\b`,
		`我们聊聊`, `\blet's talk about\b`,
	}},
	{"farewell", []string{
		`再见`, `拜拜`, `\bbye\b`, `\bgoodbye\b`, `\bsee you\b`, `下次聊`,
		`结束`, `\bend\b`, `\bfinish\b`, `停止`, `\bstop\b`,
	}},
}

var sentimentPatterns = []tagPatterns{
	{"positive", []string{
		`好`, `棒`, `赞`, `喜欢`, `爱`, `满意`, `\bgood\b`, `\bgreat\b`,
		`\blove\b`, `\blike\b`, `\bpleased\b`,
	}},
	{"negative", []string{
		`不好`, `坏`, `讨厌`, `烦`, `失望`, `\bbad\b`, `\bhate\b`,
		`\bannoying\b`, `\bdisappointed\b`, `\bupset\b`,
	}},
	{"excited", []string{
		`兴奋`, `激动`, `太棒了`, `哇`, `\bawesome\b`, `\bexcited\b`,
		`\bthrilled\b`, `\bwow\b`, `\bamazing\b`, `\bincredible\b`,
	}},
	{"frustrated", []string{
		`沮丧`, `烦躁`, `无奈`, `\bfrustrated\b`, `\birritated\b`,
	}},
	{"sad", []string{
		`难过`, `伤心`, `泪`, `哭`, `\bsad\b`, `\bcrying\b`, `\btears\b`,
	}},
	{"happy", []string{
		`开心`, `快乐`, `高兴`, `笑`, `\bhappy\b`, `\bjoyful\b`, `\bsmiling\b`,
	}},
	{"angry", []string{
		`生气`, `愤怒`, `恼火`, `\bangry\b`, `\bmad\b`, `\bfurious\b`,
	}},
}

var entityPatterns = []tagPatterns{
	{"time", []string{
		`\d{1,2}点`, `\d{1,2}:\d{2}`, `今天`, `明天`, `昨天`, `\bnow\b`,
		`\btoday\b`, `\btomorrow\b`, `\byesterday\b`, `上午`, `下午`, `晚上`,
		`\bmorning\b`, `\bafternoon\b`, `\bevening\b`, `\bnight\b`,
	}},
	{"location", []string{
		`哪里`, `\bwhere\b`, `北京`, `上海`, `广州`, `\bbeijing\b`, `\bshanghai\b`,
	}},
	{"person", []string{
		`我们`, `你们`, `他们`, `我`, `你`, `他`, `她`, `\bi\b`, `\byou\b`,
		`\bhe\b`, `\bshe\b`, `\bwe\b`, `\bthey\b`,
	}},
	{"number", []string{
		`\d+`, `\bone\b`, `\btwo\b`, `\bthree\b`, `\bfour\b`, `\bfive\b`,
	}},
	{"emotion", []string{
		`开心`, `难过`, `生气`, `高兴`, `\bhappy\b`, `\bsad\b`, `\bangry\b`, `\bjoy\b`,
	}},
}
